package main

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser launches the system browser at the given URL. The consent
// flow falls back to printing the URL when this fails.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
