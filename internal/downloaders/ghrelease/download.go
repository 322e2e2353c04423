package ghrelease

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/engine"
	"github.com/rauko1753/filch/internal/utils"
)

func (d *GHReleaseDownloader) Download(ctx context.Context, job *utils.FilchJob) error {
	downloadURL := job.Metadata["downloadURL"].(string)
	tagName, _ := job.Metadata["tagName"].(string)

	job.HTTPClientConfig.HighThreadMode = job.Connections > 5
	cfg := engine.Config{}
	if job.Connections > 0 {
		cfg.MaxWorkers = job.Connections
	}
	eng := engine.New(utils.NewFilchHTTPClient(job.HTTPClientConfig), cfg)

	var sink engine.ProgressFunc
	if job.ProgressFunc != nil {
		sink = func(p engine.Progress) {
			job.ProgressFunc(p.BytesReceived, p.TotalBytes, p.Speed, p.ETA)
		}
	}
	data, err := eng.Download(ctx, downloadURL, sink)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	log.Debug().Str("op", "ghrelease/download").Msgf("wrote %s (%s) to %s", utils.FormatBytes(uint64(len(data))), tagName, job.OutputPath)
	return nil
}
