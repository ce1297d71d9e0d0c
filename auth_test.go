package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestAccountState(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		tok   *oauth2.Token
		err   error
		state string
	}{
		{
			name:  "read error",
			err:   errors.New("corrupt file"),
			state: "unreadable",
		},
		{
			name:  "no token on disk",
			state: "missing",
		},
		{
			name:  "valid access token",
			tok:   &oauth2.Token{AccessToken: "at", Expiry: now.Add(time.Hour)},
			state: "ok",
		},
		{
			name:  "no expiry recorded",
			tok:   &oauth2.Token{AccessToken: "at"},
			state: "ok",
		},
		{
			name:  "expired with refresh token",
			tok:   &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: now.Add(-time.Hour)},
			state: "will refresh on next run",
		},
		{
			name:  "expired without refresh token",
			tok:   &oauth2.Token{AccessToken: "at", Expiry: now.Add(-time.Hour)},
			state: "expired, re-login required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, accountState(tt.tok, tt.err))
		})
	}
}
