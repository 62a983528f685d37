//go:build windows

package singleinstance

import "testing"

func setupLockDir(t *testing.T) {
	t.Helper()
}
