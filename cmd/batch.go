package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rauko1753/filch/internal/utils"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML list of entries:

  - link: https://example.com/file.zip
    op: file.zip
  - link: s3://bucket/key.tar.gz
  - link: github.com/owner/repo
    type: gitclone

Each entry needs a link; op (output path) and type are optional. Missing
types are inferred from the link's shape.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := utils.ReadJobList(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading batch file: %v\n", err)
				os.Exit(1)
			}
			runJobs(buildJobsFromEntries(entries))
		},
	}
	return cmd
}

func buildJobsFromEntries(entries []utils.DownloadEntry) []utils.FilchJob {
	jobs := make([]utils.FilchJob, 0, len(entries))
	for _, entry := range entries {
		job := utils.FilchJob{
			JobType:          entry.Type,
			URL:              entry.URL,
			OutputPath:       entry.OutputPath,
			HTTPClientConfig: globalHTTPConfig,
			Metadata:         make(map[string]any),
		}
		switch entry.Type {
		case "gitclone":
			job.ProgressType = "stream"
		case "s3":
			job.Connections = connections
			job.ProgressType = "progress"
			job.Metadata["profile"] = "default"
		case "ghrelease":
			job.Connections = connections
			job.ProgressType = "progress"
			job.Metadata["manual"] = false
		default:
			job.Connections = connections
			job.ProgressType = "progress"
		}
		jobs = append(jobs, job)
	}
	return jobs
}
