package s3

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/utils"
)

// countingBuffer wraps the transfer manager's WriterAt buffer so concurrent
// part writes feed the job's progress reporting.
type countingBuffer struct {
	buf      *manager.WriteAtBuffer
	received atomic.Int64
}

func (c *countingBuffer) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.buf.WriteAt(p, off)
	c.received.Add(int64(n))
	return n, err
}

func (d *S3Downloader) Download(ctx context.Context, job *utils.FilchJob) error {
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	size := job.Metadata["size"].(int64)
	profile, _ := job.Metadata["profile"].(string)

	client, err := getS3Client(ctx, profile)
	if err != nil {
		return fmt.Errorf("error creating S3 client: %w", err)
	}

	concurrency := job.Connections
	if concurrency < 1 {
		concurrency = manager.DefaultDownloadConcurrency
	}
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = concurrency
	})

	buf := &countingBuffer{buf: manager.NewWriteAtBuffer(make([]byte, 0, size))}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		var lastBytes int64
		lastAt := time.Now()
		for {
			select {
			case <-ticker.C:
			case <-stop:
				if job.ProgressFunc != nil {
					job.ProgressFunc(buf.received.Load(), size, 0, 0)
				}
				return
			}
			received := buf.received.Load()
			now := time.Now()
			speed := float64(received-lastBytes) / now.Sub(lastAt).Seconds()
			var eta time.Duration
			if remaining := size - received; remaining > 0 && speed > 0 {
				eta = time.Duration(float64(remaining) / speed * float64(time.Second))
			}
			if job.ProgressFunc != nil {
				job.ProgressFunc(received, size, speed, eta)
			}
			lastBytes = received
			lastAt = now
		}
	}()

	_, err = downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	close(stop)
	<-done
	if err != nil {
		return fmt.Errorf("error downloading s3://%s/%s: %w", bucket, key, err)
	}

	data := buf.buf.Bytes()
	if size > 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if err := os.WriteFile(job.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	log.Debug().Str("op", "s3/download").Msgf("wrote %s to %s", utils.FormatBytes(uint64(len(data))), job.OutputPath)
	return nil
}
