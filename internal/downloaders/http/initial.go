// Package filchhttp adapts the chunked engine to a scheduler job: it probes
// the URL, derives an output path, and writes the assembled buffer to disk.
package filchhttp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/engine"
	"github.com/rauko1753/filch/internal/utils"
)

type HTTPDownloader struct{}

func (d *HTTPDownloader) ValidateJob(job *utils.FilchJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	return nil
}

func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.FilchJob) error {
	job.HTTPClientConfig.HighThreadMode = job.Connections > 5
	eng := engine.New(utils.NewFilchHTTPClient(job.HTTPClientConfig), engineConfig(job))

	task := eng.Probe(ctx, job.URL)
	if err := utils.CheckMemoryBudget(task.TotalBytes); err != nil {
		return err
	}

	if job.OutputPath == "" && task.Filename != "" {
		job.OutputPath = task.Filename
	} else if job.OutputPath == "" {
		parsedURL, _ := url.Parse(job.URL)
		pathParts := strings.Split(parsedURL.Path, "/")
		job.OutputPath = pathParts[len(pathParts)-1]
		if job.OutputPath == "" {
			job.OutputPath = "download"
		}
	}
	if existingFile, err := os.Stat(job.OutputPath); err == nil {
		if task.TotalBytes > 0 && existingFile.Size() == task.TotalBytes {
			return fmt.Errorf("file already exists with same size")
		}
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}

	job.Metadata["task"] = task
	log.Debug().Str("op", "http/initial").Msgf("job built for %s: range=%t size=%d", job.URL, task.SupportsRange, task.TotalBytes)
	return nil
}

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.FilchJob) error {
	eng := engine.New(utils.NewFilchHTTPClient(job.HTTPClientConfig), engineConfig(job))

	task, ok := job.Metadata["task"].(engine.Task)
	if !ok {
		task = eng.Probe(ctx, job.URL)
	}

	var sink engine.ProgressFunc
	if job.ProgressFunc != nil {
		sink = func(p engine.Progress) {
			job.ProgressFunc(p.BytesReceived, p.TotalBytes, p.Speed, p.ETA)
		}
	}
	data, err := eng.DownloadTask(ctx, task, sink)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	log.Debug().Str("op", "http/download").Msgf("wrote %s to %s", utils.FormatBytes(uint64(len(data))), job.OutputPath)
	return nil
}

// engineConfig maps the job's connection count onto the engine's worker pool
// bound; everything else keeps the engine defaults.
func engineConfig(job *utils.FilchJob) engine.Config {
	cfg := engine.Config{}
	if job.Connections > 0 {
		cfg.MaxWorkers = job.Connections
		if job.Connections < engine.DefaultConfig().MinWorkers {
			cfg.MinWorkers = job.Connections
		}
	}
	return cfg
}
