package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// RenewOutputPath returns a non-colliding variant of outputPath, in the style
// of "name-(1).ext", "name-(2).ext" and so on.
func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// DetermineJobType guesses the job type from the URL shape. Explicit types
// from batch entries or subcommands take precedence over this.
func DetermineJobType(url string) string {
	switch {
	case strings.HasPrefix(url, "s3://"):
		return "s3"
	case strings.Contains(url, "github.com") && strings.Contains(url, "/releases"):
		return "ghrelease"
	case strings.HasSuffix(strings.TrimSuffix(url, "/"), ".git"):
		return "gitclone"
	default:
		return "http"
	}
}

// ReadJobList parses a YAML batch file into download entries. Entries without
// a type fall back to URL-shape detection.
func ReadJobList(path string) ([]DownloadEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading job list: %w", err)
	}
	var entries []DownloadEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing job list: %w", err)
	}
	for i := range entries {
		if entries[i].URL == "" {
			return nil, fmt.Errorf("entry %d has no link", i+1)
		}
		if entries[i].Type == "" {
			entries[i].Type = DetermineJobType(entries[i].URL)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries found in %s", path)
	}
	return entries, nil
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed == 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed
	formatted := FormatBytes(uint64(bps))
	return formatted[:len(formatted)-1] + "B/s" // Slice off "B" and add "B/s"
}
