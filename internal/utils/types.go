package utils

import (
	"context"
	"time"
)

// Downloader is implemented by every job type the scheduler can run. Validate
// is pure (URL parsing and shape checks); Build and Download touch the
// network and honor ctx cancellation.
type Downloader interface {
	ValidateJob(job *FilchJob) error
	BuildJob(ctx context.Context, job *FilchJob) error
	Download(ctx context.Context, job *FilchJob) error
}

type FilchJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	Connections      int
	ProgressType     string // "progress" for transfer bars, "stream" for line output
	ProgressFunc     func(received, total int64, speed float64, eta time.Duration)
	StreamFunc       func(line string)
	PauseFunc        func()
	ResumeFunc       func()
	Metadata         map[string]any
	HTTPClientConfig HTTPClientConfig
}

// DownloadEntry is one item of a YAML batch list.
type DownloadEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
	Type       string `yaml:"type"`
}
