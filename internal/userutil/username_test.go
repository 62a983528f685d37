package userutil

import (
	"errors"
	"os/user"
	"testing"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "alice", want: "alice"},
		{input: `DOMAIN\user`, want: "DOMAIN_user"},
		{input: "user@domain.com", want: "user_domain.com"},
		{input: "two  spaces", want: "two_spaces"},
		{input: "", want: "unknown"},
		{input: "  ", want: "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeUsername(tt.input); got != tt.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCurrentUsername(t *testing.T) {
	origUser := currentUserFn
	t.Cleanup(func() { currentUserFn = origUser })

	tests := []struct {
		name     string
		username string
		user     string
		osUser   *user.User
		want     string
	}{
		{name: "USERNAME wins", username: "win user", user: "posix", want: "win_user"},
		{name: "USER fallback", user: "posix", want: "posix"},
		{name: "account database", osUser: &user.User{Username: `CORP\bob`}, want: "CORP_bob"},
		{name: "nothing available", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("USERNAME", tt.username)
			t.Setenv("USER", tt.user)
			currentUserFn = func() (*user.User, error) {
				if tt.osUser == nil {
					return nil, errors.New("no user")
				}
				return tt.osUser, nil
			}
			if got := CurrentUsername(); got != tt.want {
				t.Fatalf("CurrentUsername() = %q, want %q", got, tt.want)
			}
		})
	}
}
