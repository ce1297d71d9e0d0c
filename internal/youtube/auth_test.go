package youtube

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadClientSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_secrets.json")

	require.NoError(t, os.WriteFile(path, []byte(`{
		"installed": {
			"client_id": "id-123.apps.googleusercontent.com",
			"client_secret": "secret-456",
			"auth_uri": "https://accounts.google.com/o/oauth2/auth",
			"token_uri": "https://oauth2.googleapis.com/token",
			"redirect_uris": ["http://localhost"]
		}
	}`), 0o600))

	cfg, err := LoadClientSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, "id-123.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, Scopes, cfg.Scopes)
}

func TestLoadClientSecrets_Missing(t *testing.T) {
	_, err := LoadClientSecrets(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading client secrets")
}

func TestHandleOAuthCallback_StateMismatch(t *testing.T) {
	resultCh := make(chan callbackResult, 1)

	req := httptest.NewRequest(http.MethodGet, "/?state=wrong&code=abc", nil)
	rec := httptest.NewRecorder()

	handleOAuthCallback(rec, req, "expected-state", resultCh)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "state mismatch")
}

func TestHandleOAuthCallback_UserDenied(t *testing.T) {
	resultCh := make(chan callbackResult, 1)

	req := httptest.NewRequest(http.MethodGet,
		"/?state=s&error=access_denied&error_description=user+denied", nil)
	rec := httptest.NewRecorder()

	handleOAuthCallback(rec, req, "s", resultCh)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "access_denied")
}

func TestHandleOAuthCallback_MissingCode(t *testing.T) {
	resultCh := make(chan callbackResult, 1)

	req := httptest.NewRequest(http.MethodGet, "/?state=s", nil)
	rec := httptest.NewRecorder()

	handleOAuthCallback(rec, req, "s", resultCh)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "missing authorization code")
}

func TestHandleOAuthCallback_Success(t *testing.T) {
	resultCh := make(chan callbackResult, 1)

	req := httptest.NewRequest(http.MethodGet, "/?state=s&code=auth-code-1", nil)
	rec := httptest.NewRecorder()

	handleOAuthCallback(rec, req, "s", resultCh)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication successful")

	result := <-resultCh
	require.NoError(t, result.err)
	assert.Equal(t, "auth-code-1", result.code)
}

func TestConsent_ExchangesCode(t *testing.T) {
	// Fake token endpoint.
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "fake-code", r.Form.Get("code"))
		assert.NotEmpty(t, r.Form.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID: "test-client",
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenSrv.URL + "/auth",
			TokenURL: tokenSrv.URL + "/token",
		},
		Scopes: Scopes,
	}

	// openURL plays the browser: hit the callback with the expected state.
	openURL := func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)

		redirect := u.Query().Get("redirect_uri")
		state := u.Query().Get("state")

		go func() {
			resp, getErr := http.Get(redirect + "/?state=" + state + "&code=fake-code")
			if getErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tok, err := Consent(ctx, cfg, "a@x.com", openURL, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
}

func TestConsent_ContextCanceled(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID: "test-client",
		Endpoint: oauth2.Endpoint{AuthURL: "http://unused/auth", TokenURL: "http://unused/token"},
	}

	ctx, cancel := context.WithCancel(context.Background())

	openURL := func(string) error {
		cancel() // never completes the flow
		return nil
	}

	_, err := Consent(ctx, cfg, "a@x.com", openURL, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSavingTokenSource_PersistsOnRefresh(t *testing.T) {
	// Token endpoint that always issues a new access token.
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID: "test-client",
		Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL},
	}

	expired := &oauth2.Token{
		AccessToken:  "at-old",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(-time.Hour),
	}

	var saved *oauth2.Token

	src := NewSavingTokenSource(context.Background(), cfg, expired,
		func(tok *oauth2.Token) error {
			saved = tok
			return nil
		}, discardLogger())

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok)

	require.NotNil(t, saved, "refreshed token must be persisted")
	assert.Equal(t, "at-new", saved.AccessToken)

	// Second call reuses the cached token without saving again.
	saved = nil
	_, err = src.Token()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestSavingTokenSource_SaveFailureIsFatal(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID: "test-client",
		Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL},
	}

	expired := &oauth2.Token{
		AccessToken:  "at-old",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(-time.Hour),
	}

	saveErr := errors.New("disk full")

	src := NewSavingTokenSource(context.Background(), cfg, expired,
		func(*oauth2.Token) error { return saveErr }, discardLogger())

	_, err := src.Token()
	require.Error(t, err)
	assert.ErrorIs(t, err, saveErr)
}

func TestSavingTokenSource_NoSaveWhenValid(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "c", Endpoint: oauth2.Endpoint{TokenURL: "http://unused"}}

	valid := &oauth2.Token{
		AccessToken: "at-1",
		Expiry:      time.Now().Add(time.Hour),
	}

	calls := 0

	src := NewSavingTokenSource(context.Background(), cfg, valid,
		func(*oauth2.Token) error {
			calls++
			return nil
		}, discardLogger())

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok)
	assert.Zero(t, calls)
}
