//go:build windows

package ipc

import (
	"fmt"
	"testing"
	"time"
)

func testEndpoint(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf(`\\.\pipe\KeyBridge-test-%d`, time.Now().UnixNano())
}

func TestDefaultEndpointHonorsTrustedOverride(t *testing.T) {
	t.Setenv(EndpointEnv, `\\.\pipe\KeyBridge-ci_pipe`)
	if got := DefaultEndpoint(); got != `\\.\pipe\KeyBridge-ci_pipe` {
		t.Fatalf("DefaultEndpoint() = %q, want override", got)
	}
}

func TestDefaultEndpointSanitizesUsername(t *testing.T) {
	t.Setenv(EndpointEnv, "")
	t.Setenv("USERNAME", "unit user!")
	if got := DefaultEndpoint(); got != `\\.\pipe\KeyBridge-unit_user_` {
		t.Fatalf("DefaultEndpoint() = %q", got)
	}
}

func TestPipeSecurityDescriptor(t *testing.T) {
	sd, err := pipeSecurityDescriptor()
	if err != nil {
		t.Fatalf("pipeSecurityDescriptor() error = %v", err)
	}
	if len(sd) < len("D:P(A;;GA;;;SY)") {
		t.Fatalf("pipeSecurityDescriptor() = %q", sd)
	}
}
