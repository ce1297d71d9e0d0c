package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// newProgressPrinter returns a transfer progress callback that redraws a
// single status line on stderr. On non-TTY output (cron, CI, pipes) it
// returns nil: redraw sequences would just pollute the log.
func newProgressPrinter() youtube.ProgressFunc {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return func(sent, total int64) {
		if total <= 0 {
			return
		}

		percent := float64(sent) / float64(total) * 100

		fmt.Fprintf(os.Stderr, "\r  %s / %s (%.0f%%)", formatSize(sent), formatSize(total), percent)

		if sent >= total {
			fmt.Fprint(os.Stderr, "\n")
		}
	}
}
