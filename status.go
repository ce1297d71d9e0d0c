package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ytup-go/internal/manifest"
	"github.com/tonimelisma/ytup-go/internal/quota"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize manifest row states",
		RunE:  runStatus,
	}
}

// maxStatusPreview caps the "next up" listing.
const maxStatusPreview = 5

// statusOrder fixes the display order of the known states; anything else
// (hand-edited or legacy values) is appended after.
var statusOrder = []manifest.Status{
	manifest.StatusPending,
	manifest.StatusUploaded,
	manifest.StatusFailed,
	manifest.StatusSkippedAuth,
	manifest.StatusSkippedQuota,
}

func runStatus(_ *cobra.Command, _ []string) error {
	m, err := manifest.Load(resolvedCfg.Manifest)
	if err != nil {
		return err
	}

	counts := m.Summary()

	rows := make([][]string, 0, len(counts))

	for _, s := range statusOrder {
		if n, ok := counts[s]; ok {
			rows = append(rows, []string{string(s), fmt.Sprintf("%d", n)})
			delete(counts, s)
		}
	}

	for s, n := range counts {
		rows = append(rows, []string{string(s), fmt.Sprintf("%d", n)})
	}

	if len(rows) == 0 {
		statusf("Manifest %s has no rows.\n", resolvedCfg.Manifest)
		return nil
	}

	printTable(os.Stdout, []string{"STATUS", "ROWS"}, rows)

	pending := m.Pending()
	if len(pending) == 0 {
		return nil
	}

	fmt.Printf("\n%d pending rows; next run needs an estimated %d quota units\n",
		len(pending), quota.Estimate(len(pending)))

	fmt.Println("\nNext up:")

	for i, e := range pending {
		if i == maxStatusPreview {
			fmt.Printf("  ... and %d more\n", len(pending)-maxStatusPreview)
			break
		}

		fmt.Printf("  %s (%s)\n", e.Filename, e.Account)
	}

	return nil
}
