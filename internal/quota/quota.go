// Package quota tracks the run's YouTube API budget and classifies platform
// failures as quota exhaustion versus everything else. The API exposes no
// remaining-quota endpoint, so the budget is a best-effort estimate charged
// at a fixed cost per operation; the authoritative exhaustion signal is the
// machine-readable reason code on the error response.
package quota

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// API unit costs per the YouTube Data API quota tables.
const (
	// InsertCost is charged per videos.insert attempt, successful or not —
	// the platform bills attempts, not outcomes.
	InsertCost = 1600

	// UpdateCost is charged per videos.update call.
	UpdateCost = 50
)

// DefaultDailyBudget is the default per-project daily quota.
const DefaultDailyBudget = 10000

// Verdict is the classification of an upload failure.
type Verdict int

const (
	// VerdictOther: any failure that is terminal for the row only.
	VerdictOther Verdict = iota

	// VerdictQuota: the platform's daily budget is exhausted; the run halts.
	VerdictQuota
)

// Guard keeps the running budget estimate for one run.
// Not safe for concurrent use; the pipeline is strictly sequential.
type Guard struct {
	budget    int
	used      int
	exhausted bool
	logger    *slog.Logger
}

// New creates a Guard with the given daily budget. Zero or negative means
// DefaultDailyBudget.
func New(budget int, logger *slog.Logger) *Guard {
	if budget <= 0 {
		budget = DefaultDailyBudget
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{budget: budget, logger: logger}
}

// Charge records units consumed by an attempted operation.
func (g *Guard) Charge(units int) {
	g.used += units

	if g.used > g.budget {
		g.logger.Warn("estimated quota budget exceeded",
			slog.Int("used", g.used),
			slog.Int("budget", g.budget),
		)
	}
}

// Remaining returns the estimated unused budget. May go negative — the
// estimate does not gate attempts, it only feeds diagnostics.
func (g *Guard) Remaining() int {
	return g.budget - g.used
}

// Used returns the estimated units consumed so far.
func (g *Guard) Used() int {
	return g.used
}

// Classify inspects an upload failure for the platform's quota-exhaustion
// signatures. A quota verdict latches the guard: once exhausted, it stays
// exhausted for the rest of the run.
func (g *Guard) Classify(err error) Verdict {
	if errors.Is(err, youtube.ErrQuotaExceeded) ||
		errors.Is(err, youtube.ErrUploadLimitExceeded) ||
		isDailyRateLimit(err) {
		g.exhausted = true

		g.logger.Warn("platform reports quota exhausted",
			slog.Int("estimated_used", g.used),
			slog.String("error", err.Error()),
		)

		return VerdictQuota
	}

	return VerdictOther
}

// isDailyRateLimit distinguishes the 403 form of rateLimitExceeded, which
// signals the daily budget like quotaExceeded does, from the transient 429
// form the client retries on its own. Only the 403 form halts the run.
func isDailyRateLimit(err error) bool {
	if !errors.Is(err, youtube.ErrRateLimited) {
		return false
	}

	var apiErr *youtube.APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// Exhausted reports whether a quota verdict has been issued this run.
func (g *Guard) Exhausted() bool {
	return g.exhausted
}

// Estimate returns the advisory unit cost of publishing n rows, one insert
// plus one metadata update each.
func Estimate(rows int) int {
	return rows * (InsertCost + UpdateCost)
}
