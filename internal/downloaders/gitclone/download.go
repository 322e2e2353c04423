package gitclone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/rauko1753/filch/internal/utils"
)

// cloneProgress forwards go-git's sideband messages to the job's stream.
type cloneProgress struct {
	streamFunc func(string)
}

func (p *cloneProgress) Write(data []byte) (int, error) {
	if p.streamFunc != nil {
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				p.streamFunc(line)
			}
		}
	}
	return len(data), nil
}

func (d *GitCloneDownloader) Download(ctx context.Context, job *utils.FilchJob) error {
	cloneURL := job.Metadata["cloneURL"].(string)
	depth, _ := job.Metadata["depth"].(int)

	auth, err := getAuthMethod(cloneURL)
	if err != nil && job.StreamFunc != nil {
		job.StreamFunc(fmt.Sprintf("Warning: %v", err))
	}

	cloneOptions := &git.CloneOptions{
		URL:      cloneURL,
		Progress: &cloneProgress{streamFunc: job.StreamFunc},
		Auth:     auth,
	}
	if depth > 0 {
		cloneOptions.Depth = depth
	}

	if job.StreamFunc != nil {
		job.StreamFunc(fmt.Sprintf("Cloning %s", cloneURL))
	}
	if _, err := git.PlainCloneContext(ctx, job.OutputPath, false, cloneOptions); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}

	if size, err := getDirSize(job.OutputPath); err == nil && job.StreamFunc != nil {
		job.StreamFunc(fmt.Sprintf("Clone complete - Total size: %s", utils.FormatBytes(uint64(size))))
	}
	return nil
}

func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
