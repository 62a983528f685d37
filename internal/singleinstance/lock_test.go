package singleinstance

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func uniqueLockName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("KeyBridge-test-%d", time.Now().UnixNano())
}

func TestTryLock(t *testing.T) {
	setupLockDir(t)
	name := uniqueLockName(t)

	first, err := TryLock(name)
	if err != nil {
		t.Fatalf("first TryLock() error = %v", err)
	}

	if _, err := TryLock(name); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second TryLock() error = %v, want ErrAlreadyRunning", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	again, err := TryLock(name)
	if err != nil {
		t.Fatalf("TryLock() after release error = %v", err)
	}
	_ = again.Release()
}

func TestTryLockRequiresName(t *testing.T) {
	if _, err := TryLock(""); err == nil {
		t.Fatal("TryLock(\"\") error = nil, want error")
	}
}

func TestReleaseNilLock(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil Release() error = %v", err)
	}
}

func TestDefaultName(t *testing.T) {
	t.Setenv("USERNAME", `CORP\alice`)
	if got := DefaultName(); got != "KeyBridge-CORP_alice" {
		t.Fatalf("DefaultName() = %q", got)
	}
	if strings.ContainsAny(DefaultName(), `\/`) {
		t.Fatal("DefaultName() contains path separators")
	}
}
