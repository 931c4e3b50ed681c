package update

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"

	"github.com/sqlshift/sqlshift/cli/internal/ui"
)

// latestKnownVersion is the most recent release baked into this build. A
// release pipeline can override it at link time together with the version
// package variables.
var latestKnownVersion = "0.2.0"

// CheckForUpdates compares the running version against the latest known
// release and prints an upgrade hint when behind.
func CheckForUpdates(currentVersion string) error {
	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	latest, err := version.NewVersion(latestKnownVersion)
	if err != nil {
		return fmt.Errorf("invalid latest version format: %w", err)
	}

	if current.LessThan(latest) {
		ui.PrintWarning("A new version is available!")
		fmt.Printf("Current version: %s\n", currentVersion)
		fmt.Printf("Latest version:  %s\n", latestKnownVersion)
		fmt.Printf("\nUpdate with: go install github.com/sqlshift/sqlshift/cmd/sqlshift@latest\n")
	}

	return nil
}

// GetDownloadURL returns the release download URL for the current platform.
func GetDownloadURL(ver string) string {
	return fmt.Sprintf("https://github.com/sqlshift/sqlshift/releases/download/v%s/sqlshift-%s-%s", ver, runtime.GOOS, runtime.GOARCH)
}
