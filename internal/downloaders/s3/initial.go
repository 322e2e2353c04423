// Package s3 downloads single objects from AWS S3 through the SDK transfer
// manager, assembling them in memory like the HTTP engine does.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/utils"
)

type S3Downloader struct{}

func (d *S3Downloader) ValidateJob(job *utils.FilchJob) error {
	bucket, key, err := parseS3URL(job.URL)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("s3://%s/%s looks like a folder; only single objects are supported", bucket, key)
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	return nil
}

func (d *S3Downloader) BuildJob(ctx context.Context, job *utils.FilchJob) error {
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	profile, _ := job.Metadata["profile"].(string)

	client, err := getS3Client(ctx, profile)
	if err != nil {
		return fmt.Errorf("error creating S3 client: %w", err)
	}
	size, err := getS3ObjectSize(ctx, bucket, key, client)
	if err != nil {
		return fmt.Errorf("error getting S3 object info: %w", err)
	}
	if err := utils.CheckMemoryBudget(size); err != nil {
		return err
	}
	job.Metadata["size"] = size

	if job.OutputPath == "" {
		parts := strings.Split(key, "/")
		job.OutputPath = parts[len(parts)-1]
	}
	if exists := fileExists(job.OutputPath); exists {
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}
	log.Debug().Str("op", "s3/initial").Msgf("job built for s3://%s/%s, size %d", bucket, key, size)
	return nil
}

func parseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format")
	}
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}
