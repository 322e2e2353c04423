// Package scheduler runs download jobs through a bounded worker pool, wiring
// each job's lifecycle (validate, build, download) into the terminal display.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/downloaders/ghrelease"
	"github.com/rauko1753/filch/internal/downloaders/gitclone"
	filchhttp "github.com/rauko1753/filch/internal/downloaders/http"
	"github.com/rauko1753/filch/internal/downloaders/s3"
	"github.com/rauko1753/filch/internal/output"
	"github.com/rauko1753/filch/internal/utils"
)

// downloaderRegistry maps job types to their respective downloader
// implementations. Built once because ghrelease carries per-process API
// cache state.
var downloaderRegistry = map[string]utils.Downloader{
	"http":      &filchhttp.HTTPDownloader{},
	"s3":        &s3.S3Downloader{},
	"gitclone":  &gitclone.GitCloneDownloader{},
	"ghrelease": ghrelease.New(),
}

// Run executes the given jobs over numWorkers parallel workers and blocks
// until all of them settle. With fileLog set, logs go to filch.log so the
// display manager owns the terminal. Returns an error when any job failed.
func Run(ctx context.Context, jobs []utils.FilchJob, numWorkers int, fileLog bool) error {
	if fileLog {
		if f, err := os.OpenFile("filch.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			utils.SetLogOutput(f)
			defer f.Close()
		}
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	outputMgr := output.NewManager()
	outputMgr.StartDisplay()

	jobCh := make(chan utils.FilchJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := processJob(ctx, job, outputMgr); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}
	wg.Wait()
	outputMgr.StopDisplay()

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func processJob(ctx context.Context, job utils.FilchJob, outputMgr *output.Manager) error {
	job.ID = uuid.NewString()
	label := job.OutputPath
	if label == "" {
		label = job.URL
	}
	lineID := outputMgr.RegisterJob(label)

	downloader, exists := downloaderRegistry[job.JobType]
	if !exists {
		err := fmt.Errorf("unknown job type: %s", job.JobType)
		outputMgr.ReportError(lineID, err)
		return err
	}

	job.ProgressFunc = func(received, total int64, speed float64, eta time.Duration) {
		outputMgr.SetProgress(lineID, received, total, speed, eta)
	}
	job.StreamFunc = func(line string) {
		outputMgr.AddStreamLine(lineID, line)
	}
	job.PauseFunc = func() { outputMgr.Pause() }
	job.ResumeFunc = func() { outputMgr.Resume() }

	log.Debug().Str("op", "scheduler").Msgf("job %s starting: %s %s", job.ID, job.JobType, job.URL)

	outputMgr.SetStatus(lineID, "pending")
	outputMgr.SetMessage(lineID, fmt.Sprintf("Validating %s job", job.JobType))
	if err := downloader.ValidateJob(&job); err != nil {
		outputMgr.ReportError(lineID, fmt.Errorf("validation failed: %w", err))
		return err
	}

	outputMgr.SetMessage(lineID, fmt.Sprintf("Building %s job", job.JobType))
	if err := downloader.BuildJob(ctx, &job); err != nil {
		outputMgr.ReportError(lineID, fmt.Errorf("build failed: %w", err))
		return err
	}

	outputMgr.SetStatus(lineID, "info")
	outputMgr.SetMessage(lineID, fmt.Sprintf("Downloading %s", job.OutputPath))
	if err := downloader.Download(ctx, &job); err != nil {
		outputMgr.ReportError(lineID, fmt.Errorf("download failed: %w", err))
		return err
	}

	log.Debug().Str("op", "scheduler").Msgf("job %s completed: %s", job.ID, job.OutputPath)
	outputMgr.Complete(lineID, fmt.Sprintf("Completed %s", job.OutputPath))
	return nil
}
