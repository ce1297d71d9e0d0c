package youtube

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested from the account holder: upload plus the manage capability
// needed for the post-transfer metadata update.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.force-ssl",
}

// ErrNotLoggedIn is returned when no cached token exists for an account.
var ErrNotLoggedIn = errors.New("youtube: not logged in")

// LoadClientSecrets reads an installed-app client_secrets.json (the format
// the Google Cloud console exports) and builds the OAuth2 config for the
// consent flow.
func LoadClientSecrets(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("youtube: reading client secrets %s: %w", path, err)
	}

	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("youtube: parsing client secrets %s: %w", path, err)
	}

	return cfg, nil
}

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// Consent performs the authorization code + PKCE flow for one account:
//  1. Binds a localhost HTTP server on a random port
//  2. Opens the browser to Google's authorization endpoint
//  3. Receives the callback with the authorization code
//  4. Exchanges the code for an access/refresh token pair
//
// Blocks on human interaction until the callback fires or ctx is canceled.
// openURL is called with the authorization URL; the CLI uses it to launch the
// default browser. If openURL returns an error, the URL is printed to stderr
// so the user can open it manually.
func Consent(
	ctx context.Context,
	cfg *oauth2.Config,
	email string,
	openURL func(string) error,
	logger *slog.Logger,
) (*oauth2.Token, error) {
	logger.Info("starting browser consent flow (authorization code + PKCE)",
		slog.String("account", email),
	)

	// Start the localhost callback server.
	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, logger)

	// Work on a copy: the redirect URL carries the per-flow callback port
	// and must not leak into the caller's config.
	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://localhost:%d", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("youtube: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	// login_hint preselects the target account in Google's account chooser so
	// the operator grants consent for the row's account, not whichever account
	// the browser happens to be signed in to.
	authURL := flowCfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("login_hint", email),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	launchBrowser(authURL, openURL, logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	logger.Info("received authorization code, exchanging for token",
		slog.String("account", email),
	)

	tok, err := flowCfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("youtube: token exchange failed: %w", err)
	}

	logger.Info("consent granted",
		slog.String("account", email),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, nil
}

// startCallbackServer binds to 127.0.0.1:0 and starts an HTTP server with the
// given mux. Returns the server, the port, and any error.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("youtube: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("youtube: listener address is not TCP")
	}

	port := tcpAddr.Port
	logger.Info("callback server listening", slog.Int("port", port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("youtube: callback server error: %w", serveErr)}
		}
	}()

	return srv, port, nil
}

// registerCallbackHandler adds the callback route to the mux.
// Must be called before the browser redirects back.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		handleOAuthCallback(w, r, state, resultCh)
	})
}

// handleOAuthCallback validates the state, extracts the code, and sends the result.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	// Validate state to prevent CSRF.
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("youtube: OAuth2 state mismatch (possible CSRF)")}

		return
	}

	// Check for error from the authorization server (user denial, etc.).
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("youtube: authorization failed: %s: %s", errParam, desc)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("youtube: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Best-effort shutdown — log but don't propagate since we're in a defer.
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL. If it fails, prints the URL
// to stderr as a fallback so the user can copy-paste it.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("youtube: browser consent canceled: %w", ctx.Err())
	}
}

// generateState produces a cryptographically random hex string for the OAuth2
// state parameter. Using crypto/rand prevents CSRF attacks.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// TokenSaver persists a refreshed token. Satisfied by tokenstore.Store via
// a small closure in the broker; defined here so this package stays free of
// a tokenstore import.
type TokenSaver func(tok *oauth2.Token) error

// NewSavingTokenSource wraps the standard oauth2 auto-refreshing token source
// and persists every refreshed token through save. The oauth2 package has no
// refresh callback, so the wrapper detects refreshes by comparing access
// tokens across Token() calls.
//
// ctx must outlive the TokenSource — if ctx is canceled, silent token refresh
// will fail. Callers should pass context.Background() for long-lived runs.
func NewSavingTokenSource(
	ctx context.Context,
	cfg *oauth2.Config,
	tok *oauth2.Token,
	save TokenSaver,
	logger *slog.Logger,
) TokenSource {
	return &savingTokenSource{
		src:    cfg.TokenSource(ctx, tok),
		save:   save,
		last:   tok.AccessToken,
		logger: logger,
	}
}

// savingTokenSource adapts oauth2.TokenSource to youtube.TokenSource and
// writes refreshed tokens back to durable storage.
type savingTokenSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	save   TokenSaver
	last   string
	logger *slog.Logger
}

func (s *savingTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.src.Token()
	if err != nil {
		s.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("youtube: obtaining token: %w", err)
	}

	if t.AccessToken != s.last {
		s.logger.Info("token refreshed, persisting",
			slog.Time("new_expiry", t.Expiry),
		)

		if saveErr := s.save(t); saveErr != nil {
			// An unpersisted refresh means the next run cannot resume
			// non-interactively; the store failure propagates as fatal.
			return "", fmt.Errorf("youtube: persisting refreshed token: %w", saveErr)
		}

		s.last = t.AccessToken
	}

	return t.AccessToken, nil
}

// StaticTokenSource returns a TokenSource that always yields tok. Used by
// tests and by callers that manage refresh themselves.
func StaticTokenSource(tok string) TokenSource {
	return staticTokenSource(tok)
}

type staticTokenSource string

func (s staticTokenSource) Token() (string, error) { return string(s), nil }
