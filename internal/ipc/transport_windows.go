//go:build windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
)

const defaultPipePrefix = `\\.\pipe\KeyBridge-`

var (
	pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\KeyBridge-[a-z0-9._-]{1,128}$`)
	validSIDPattern = regexp.MustCompile(`^S-1(-\d+)+$`)
)

func defaultEndpointFor(username string) string {
	return defaultPipePrefix + username
}

func validEndpoint(v string) bool {
	return pipeNamePattern.MatchString(v)
}

// listen creates a byte-mode pipe whose DACL admits only SYSTEM and the
// current user.
func listen(pipeName string) (net.Listener, error) {
	sd, err := pipeSecurityDescriptor()
	if err != nil {
		return nil, err
	}
	return winio.ListenPipe(pipeName, &winio.PipeConfig{
		SecurityDescriptor: sd,
		InputBufferSize:    int32(maxRequestBytes),
		OutputBufferSize:   int32(maxResponseBytes),
	})
}

func dial(pipeName string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipeName, &timeout)
}

func isPipeNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, winio.ErrTimeout)
}

func pipeSecurityDescriptor() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	sid := strings.TrimSpace(current.Uid)
	if !validSIDPattern.MatchString(sid) {
		return "", fmt.Errorf("current user SID has unexpected format: %q", sid)
	}
	// Protected DACL: full access for SYSTEM and the current user only.
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", sid), nil
}
