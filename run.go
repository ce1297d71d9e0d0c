package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/ytup-go/internal/batch"
	"github.com/tonimelisma/ytup-go/internal/history"
	"github.com/tonimelisma/ytup-go/internal/manifest"
	"github.com/tonimelisma/ytup-go/internal/quota"
	"github.com/tonimelisma/ytup-go/internal/tokenstore"
	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// watchDebounce batches rapid manifest edits (editors often write twice)
// into a single pass.
const watchDebounce = 2 * time.Second

func newRunCmd() *cobra.Command {
	var (
		dryRun bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending manifest rows",
		Long: "Uploads every pending row of the manifest in order, one at a time, " +
			"writing the outcome back after each row. A completed pass exits 0 even " +
			"when individual rows failed; the manifest records per-row outcomes.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRun(dryRun, watch)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate rows and show the plan without uploading")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running, processing the manifest whenever it changes")

	return cmd
}

func runRun(dryRun, watch bool) error {
	logger := buildLogger()

	if dryRun {
		return runDryRun(logger)
	}

	ctx := shutdownContext(context.Background(), logger)

	release, err := acquireRunLock(resolvedCfg.Manifest)
	if err != nil {
		return err
	}
	defer release()

	if err := executePass(ctx, logger); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	return watchManifest(ctx, logger)
}

// executePass assembles the pipeline and drives one full pass.
func executePass(ctx context.Context, logger *slog.Logger) error {
	oauthCfg, err := youtube.LoadClientSecrets(resolvedCfg.Auth.ClientSecrets)
	if err != nil {
		return fmt.Errorf("loading client secrets: %w", err)
	}

	store := tokenstore.New(resolvedCfg.Auth.TokensDir)

	consent := func(ctx context.Context, email string) (*oauth2.Token, error) {
		return youtube.Consent(ctx, oauthCfg, email, openBrowser, logger)
	}

	broker := batch.NewBroker(store, oauthCfg, consent, logger)
	guard := quota.New(resolvedCfg.Quota.DailyBudget, logger)

	chunkSize, err := resolvedCfg.ChunkSizeBytes()
	if err != nil {
		return err
	}

	factory := func(ts youtube.TokenSource) batch.Uploader {
		client := youtube.NewClient(
			youtube.DefaultAPIBaseURL,
			youtube.DefaultUploadBaseURL,
			defaultHTTPClient(),
			ts,
			logger,
		)
		client.SetChunkSize(chunkSize)

		return client
	}

	executor := batch.NewExecutor(resolvedCfg.MediaDir, factory, guard, logger)
	executor.DefaultPrivacy = resolvedCfg.Upload.DefaultPrivacy
	executor.Progress = newProgressPrinter()

	runnerCfg := batch.RunnerConfig{
		ManifestPath: resolvedCfg.Manifest,
		Broker:       broker,
		Executor:     executor,
		Guard:        guard,
		RunID:        uuid.NewString(),
		Logger:       logger,
	}

	if resolvedCfg.History.Enabled {
		ledger, err := history.Open(resolvedCfg.History.Database, logger)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer ledger.Close()

		runnerCfg.Ledger = ledger
	}

	summary, err := batch.NewRunner(runnerCfg).Run(ctx)
	if err != nil {
		return err
	}

	statusf("Run %s: %d uploaded, %d failed, %d skipped (auth), %d skipped (quota); ~%d quota units used\n",
		summary.RunID, summary.Uploaded, summary.Failed,
		summary.SkippedAuth, summary.SkippedQuota, summary.QuotaUsed)

	return nil
}

// runDryRun validates every pending row locally and prints the plan.
// No credentials are touched and nothing goes over the network.
func runDryRun(logger *slog.Logger) error {
	m, err := manifest.Load(resolvedCfg.Manifest)
	if err != nil {
		return err
	}

	pending := m.Pending()
	if len(pending) == 0 {
		statusf("Nothing to do: no pending rows.\n")
		return nil
	}

	executor := batch.NewExecutor(resolvedCfg.MediaDir, nil, nil, logger)

	rows := make([][]string, 0, len(pending))

	for _, entry := range pending {
		verdict := "ok"
		if err := executor.Precheck(entry); err != nil {
			verdict = err.Error()
		}

		rows = append(rows, []string{entry.Filename, entry.Account, verdict})
	}

	printTable(os.Stdout, []string{"FILE", "ACCOUNT", "CHECK"}, rows)

	fmt.Printf("\n%d pending rows; estimated %d quota units (daily budget %d)\n",
		len(pending), quota.Estimate(len(pending)), resolvedCfg.Quota.DailyBudget)

	return nil
}

// watchManifest reruns a pass whenever the manifest file changes. The
// manifest's directory is watched, not the file itself: each pass replaces
// the file by rename, which would silently detach a file-level watch.
func watchManifest(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(resolvedCfg.Manifest)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	logger.Info("watching manifest", slog.String("path", resolvedCfg.Manifest))
	statusf("Watching %s for changes (Ctrl-C to stop)...\n", resolvedCfg.Manifest)

	target := filepath.Clean(resolvedCfg.Manifest)

	var debounce *time.Timer

	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watch error", slog.String("error", err.Error()))
		case <-trigger:
			// A pass's own atomic rewrite also lands here; with every row
			// already terminal it makes no network calls and exits fast.
			if err := executePass(ctx, logger); err != nil {
				return err
			}
		}
	}
}
