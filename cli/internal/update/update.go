// Package update checks whether a newer release is available.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/driftlock/driftlock/cli/internal/ui"
)

const releaseEndpoint = "https://api.github.com/repos/driftlock/driftlock/releases/latest"

// CheckForUpdates fetches the latest release tag and warns when the running
// binary is behind it. Network failures are reported, never fatal.
func CheckForUpdates(currentVersion string) error {
	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	latestStr, err := fetchLatestTag()
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	latest, err := version.NewVersion(latestStr)
	if err != nil {
		return fmt.Errorf("invalid latest version format: %w", err)
	}

	if current.LessThan(latest) {
		ui.PrintWarning("A new version is available!")
		fmt.Printf("Current version: %s\n", current)
		fmt.Printf("Latest version:  %s\n", latest)
		fmt.Printf("\nUpdate with: go install github.com/driftlock/driftlock/cli@latest\n")
	}

	return nil
}

func fetchLatestTag() (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(releaseEndpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}
