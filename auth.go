package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/ytup-go/internal/tokenstore"
	"github.com/tonimelisma/ytup-go/internal/youtube"
)

func newLoginCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize an uploader account in the browser",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogin(account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "uploader account email (required)")
	cmd.MarkFlagRequired("account")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a saved account authorization",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogout(account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "uploader account email (required)")
	cmd.MarkFlagRequired("account")

	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "List saved account authorizations",
		RunE:  runWhoami,
	}
}

func runLogin(account string) error {
	logger := buildLogger()
	ctx := context.Background()

	logger.Info("login started", "account", account)

	oauthCfg, err := youtube.LoadClientSecrets(resolvedCfg.Auth.ClientSecrets)
	if err != nil {
		return fmt.Errorf("loading client secrets: %w", err)
	}

	tok, err := youtube.Consent(ctx, oauthCfg, account, openBrowser, logger)
	if err != nil {
		return err
	}

	store := tokenstore.New(resolvedCfg.Auth.TokensDir)
	if err := store.Put(account, tok); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	logger.Info("login successful", "account", account)
	statusf("Authorized %s.\n", account)

	return nil
}

func runLogout(account string) error {
	logger := buildLogger()

	store := tokenstore.New(resolvedCfg.Auth.TokensDir)
	if err := store.Delete(account); err != nil {
		return err
	}

	logger.Info("logout successful", "account", account)
	statusf("Logged out %s.\n", account)

	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	store := tokenstore.New(resolvedCfg.Auth.TokensDir)

	accounts, err := store.List()
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		statusf("No accounts authorized — run 'ytup login --account you@example.com' first.\n")
		return nil
	}

	rows := make([][]string, 0, len(accounts))

	for _, email := range accounts {
		tok, err := store.Get(email)
		rows = append(rows, []string{email, accountState(tok, err)})
	}

	printTable(os.Stdout, []string{"ACCOUNT", "STATE"}, rows)

	return nil
}

// accountState summarizes a stored token for the whoami table. Tokens
// without an expiry never age out on their own, so they read as ok.
func accountState(tok *oauth2.Token, err error) string {
	switch {
	case err != nil:
		return "unreadable"
	case tok == nil:
		return "missing"
	case tok.Expiry.IsZero():
		return "ok"
	case tok.RefreshToken == "" && tok.Expiry.Before(time.Now()):
		return "expired, re-login required"
	case tok.Expiry.Before(time.Now()):
		return "will refresh on next run"
	default:
		return "ok"
	}
}
