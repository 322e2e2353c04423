// Package ghrelease resolves GitHub release assets through the API and
// downloads the selected asset with the chunked engine. API responses go
// through a per-process cache with rate limiting so batch runs with many
// releases stay inside unauthenticated quota.
package ghrelease

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"

	"golang.org/x/oauth2"

	"github.com/rauko1753/filch/internal/apicache"
	"github.com/rauko1753/filch/internal/utils"
)

type GHReleaseDownloader struct {
	api *apicache.Client
}

// New builds the downloader with its API cache. A GITHUB_TOKEN in the
// environment upgrades the API client to authenticated requests.
func New() *GHReleaseDownloader {
	var doer apicache.Doer = http.DefaultClient
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		doer = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}
	return &GHReleaseDownloader{api: apicache.New(doer, apicache.DefaultConfig())}
}

func (d *GHReleaseDownloader) ValidateJob(job *utils.FilchJob) error {
	owner, repo, err := parseGitHubURL(job.URL)
	if err != nil {
		return err
	}
	job.Metadata["owner"] = owner
	job.Metadata["repo"] = repo
	return nil
}

func (d *GHReleaseDownloader) BuildJob(ctx context.Context, job *utils.FilchJob) error {
	owner := job.Metadata["owner"].(string)
	repo := job.Metadata["repo"].(string)
	manual, _ := job.Metadata["manual"].(bool)

	assets, tagName, err := d.getReleaseAssets(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("error fetching release info: %w", err)
	}

	var downloadURL string
	var size int64
	if manual {
		if job.PauseFunc != nil {
			job.PauseFunc()
		}
		downloadURL, size, err = promptAssetSelection(assets, tagName)
		if job.ResumeFunc != nil {
			job.ResumeFunc()
		}
		if err != nil {
			return err
		}
	} else {
		downloadURL, size, err = selectLatestAsset(assets)
		if err != nil {
			return err
		}
		if downloadURL == "" {
			return fmt.Errorf("could not automatically select asset for platform %s/%s, use --manual flag", runtime.GOOS, runtime.GOARCH)
		}
	}

	if err := utils.CheckMemoryBudget(size); err != nil {
		return err
	}

	urlParts := strings.Split(downloadURL, "/")
	if job.OutputPath == "" {
		job.OutputPath = urlParts[len(urlParts)-1]
	}
	if info, err := os.Stat(job.OutputPath); err == nil {
		if size > 0 && info.Size() == size {
			return fmt.Errorf("file already exists with same size")
		}
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}

	job.Metadata["downloadURL"] = downloadURL
	job.Metadata["fileSize"] = size
	job.Metadata["tagName"] = tagName
	return nil
}
