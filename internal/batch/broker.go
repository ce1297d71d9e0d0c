// Package batch drives one sequential pass over the manifest: it hands out
// per-account credentials, publishes each pending row, and persists the
// outcome after every row so a crash never repeats completed work.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// ErrStore marks a credential or state persistence failure. These abort the
// run: continuing without durable state would repeat or lose work.
var ErrStore = errors.New("batch: store failure")

// ErrAuthFailed marks an account whose authorization could not be obtained
// this run. Rows on that account are skipped, other accounts proceed.
var ErrAuthFailed = errors.New("batch: authentication failed")

// TokenStore is the credential persistence surface the broker needs.
type TokenStore interface {
	Get(email string) (*oauth2.Token, error)
	Put(email string, tok *oauth2.Token) error
}

// ConsentFlow runs an interactive authorization for one account and returns
// the granted token.
type ConsentFlow func(ctx context.Context, email string) (*oauth2.Token, error)

// Broker hands out one authenticated token source per account. It caches
// sources so rows sharing an account share a credential, and remembers
// failed accounts so a broken credential costs one consent attempt per run.
type Broker struct {
	store   TokenStore
	oauth   *oauth2.Config
	consent ConsentFlow
	logger  *slog.Logger

	sources map[string]youtube.TokenSource
	failed  map[string]error
}

// NewBroker builds a broker over the given token store and consent flow.
func NewBroker(store TokenStore, oauthCfg *oauth2.Config, consent ConsentFlow, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Broker{
		store:   store,
		oauth:   oauthCfg,
		consent: consent,
		logger:  logger,
		sources: make(map[string]youtube.TokenSource),
		failed:  make(map[string]error),
	}
}

// Authenticate returns a token source for the account, running the consent
// flow at most once per account per run. Store failures and cancellation
// return as-is; any other failure is remembered and returned for every
// subsequent row on the same account, wrapped in ErrAuthFailed.
func (b *Broker) Authenticate(ctx context.Context, email string) (youtube.TokenSource, error) {
	if src, ok := b.sources[email]; ok {
		return src, nil
	}

	if prior, ok := b.failed[email]; ok {
		return nil, prior
	}

	src, err := b.authenticate(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStore) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		failure := fmt.Errorf("%w: account %s: %v", ErrAuthFailed, email, err)
		b.failed[email] = failure

		return nil, failure
	}

	b.sources[email] = src

	return src, nil
}

func (b *Broker) authenticate(ctx context.Context, email string) (youtube.TokenSource, error) {
	tok, err := b.store.Get(email)
	if err != nil {
		return nil, fmt.Errorf("%w: reading token for %s: %v", ErrStore, email, err)
	}

	if tok != nil {
		src := b.newSource(ctx, email, tok)

		// Probe the stored token once. An expired token with a live refresh
		// token succeeds here; a revoked or refresh-less grant falls through
		// to a fresh consent.
		_, probeErr := src.Token()
		if probeErr == nil {
			return src, nil
		}

		if errors.Is(probeErr, ErrStore) {
			return nil, probeErr
		}

		b.logger.Warn("stored token unusable, requesting consent",
			slog.String("account", email),
			slog.String("error", probeErr.Error()),
		)
	}

	tok, err = b.consent(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("consent: %w", err)
	}

	if err := b.store.Put(email, tok); err != nil {
		return nil, fmt.Errorf("%w: writing token for %s: %v", ErrStore, email, err)
	}

	return b.newSource(ctx, email, tok), nil
}

func (b *Broker) newSource(ctx context.Context, email string, tok *oauth2.Token) youtube.TokenSource {
	save := func(t *oauth2.Token) error {
		if err := b.store.Put(email, t); err != nil {
			return fmt.Errorf("%w: writing token for %s: %v", ErrStore, email, err)
		}

		return nil
	}

	return youtube.NewSavingTokenSource(ctx, b.oauth, tok, save, b.logger)
}
