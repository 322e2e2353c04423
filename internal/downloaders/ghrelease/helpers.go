package ghrelease

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// assetSelectMap pairs GOOS+GOARCH with the name fragments release authors
// actually use for that platform.
var assetSelectMap = map[string][]string{
	"linuxamd64":   {"linux-amd64", "linux_amd64", "linux-x86_64", "linux-x86-64", "linux_x86_64", "linux_x86-64", "amd64-linux", "x86_64-linux", "x86-64-linux", "amd64_linux", "x86_64_linux", "x86-64_linux"},
	"linuxarm64":   {"linux-arm64", "linux_arm64", "linux-aarch64", "linux_aarch64", "arm64-linux", "aarch64-linux", "arm64_linux", "aarch64_linux"},
	"windowsamd64": {"windows-amd64", "windows_amd64", "windows-x86_64", "windows-x86-64", "windows_x86_64", "windows_x86-64", "amd64-windows", "x86_64-windows", "x86-64-windows", "amd64_windows", "x86_64_windows", "x86-64_windows"},
	"windowsarm64": {"windows-arm64", "windows_arm64", "windows-aarch64", "windows_aarch64", "arm64-windows", "aarch64-windows", "arm64_windows", "aarch64_windows"},
	"darwinamd64":  {"darwin-amd64", "darwin_amd64", "darwin-x86_64", "darwin-x86-64", "darwin_x86_64", "darwin_x86-64", "amd64-darwin", "x86_64-darwin", "x86-64-darwin", "amd64_darwin", "x86_64_darwin", "x86-64_darwin"},
	"darwinarm64":  {"darwin-arm64", "darwin_arm64", "darwin-aarch64", "darwin_aarch64", "arm64-darwin", "aarch64-darwin", "arm64_darwin", "aarch64_darwin"},
}

var repoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/?.*$`),
	regexp.MustCompile(`^github\.com/([^/]+)/([^/]+)/?.*$`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

var ignoredAssets = []string{
	"license", "readme", "changelog", "checksums", "sha256checksum", ".sha256",
}

func parseGitHubURL(url string) (string, string, error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	for _, pattern := range repoPatterns {
		matches := pattern.FindStringSubmatch(url)
		if len(matches) >= 3 {
			return matches[1], strings.TrimSuffix(matches[2], ".git"), nil
		}
	}
	return "", "", fmt.Errorf("invalid GitHub repository format: %s", url)
}

type releaseAsset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

type release struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

func (d *GHReleaseDownloader) getReleaseAssets(ctx context.Context, owner, repo string) ([]releaseAsset, string, error) {
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo)
	header := http.Header{"Accept": []string{"application/vnd.github+json"}}
	body, status, err := d.api.Get(ctx, apiURL, header)
	if err != nil {
		return nil, "", fmt.Errorf("error making API request: %w", err)
	}
	if status != http.StatusOK {
		return nil, "", fmt.Errorf("API request failed with status code: %d", status)
	}
	var rel release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, "", fmt.Errorf("error decoding API response: %w", err)
	}
	if len(rel.Assets) == 0 {
		return nil, "", fmt.Errorf("no assets found in the release")
	}
	return rel.Assets, rel.TagName, nil
}

// selectLatestAsset picks the asset matching the current platform. An empty
// URL with a nil error means nothing matched and the caller should offer
// manual selection.
func selectLatestAsset(assets []releaseAsset) (string, int64, error) {
	platformKeys, ok := assetSelectMap[runtime.GOOS+runtime.GOARCH]
	if !ok {
		return "", 0, fmt.Errorf("unsupported platform: %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	var candidates []releaseAsset
	for _, asset := range assets {
		name := strings.ToLower(asset.Name)
		if isIgnoredAsset(name) {
			continue
		}
		for _, key := range platformKeys {
			if strings.Contains(name, key) {
				candidates = append(candidates, asset)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return "", 0, nil
	}
	// prefer archives over bare binaries when both exist
	for _, c := range candidates {
		name := strings.ToLower(c.Name)
		if strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".zip") {
			return c.URL, c.Size, nil
		}
	}
	return candidates[0].URL, candidates[0].Size, nil
}

func isIgnoredAsset(name string) bool {
	for _, ignored := range ignoredAssets {
		if strings.Contains(name, ignored) {
			return true
		}
	}
	return false
}

// promptAssetSelection lists all assets on the paused terminal and reads the
// user's pick from stdin, clearing the prompt lines afterwards.
func promptAssetSelection(assets []releaseAsset, tagName string) (string, int64, error) {
	fmt.Printf("Release: %s\nAvailable assets:\n", tagName)
	for i, asset := range assets {
		fmt.Printf("%d. %s (%.2f MB)\n", i+1, asset.Name, float64(asset.Size)/1024/1024)
	}
	fmt.Print("\nEnter the number of the asset to download: ")
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", 0, fmt.Errorf("error reading input: %w", err)
	}
	selection, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", 0, fmt.Errorf("invalid selection: %w", err)
	}
	if selection < 1 || selection > len(assets) {
		return "", 0, fmt.Errorf("selection out of range")
	}
	linesUsed := len(assets) + 4 // header + asset list + prompt + input
	fmt.Printf("\033[%dA\033[J", linesUsed)

	chosen := assets[selection-1]
	return chosen.URL, chosen.Size, nil
}
