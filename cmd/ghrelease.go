package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rauko1753/filch/internal/utils"
)

func newGHReleaseCmd() *cobra.Command {
	var outputPath string
	var manual bool

	cmd := &cobra.Command{
		Use:   "ghrelease [USER/REPO or URL]",
		Short: "Download a release asset for a GitHub repository",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job := utils.FilchJob{
				JobType:          "ghrelease",
				URL:              args[0],
				OutputPath:       outputPath,
				Connections:      connections,
				ProgressType:     "progress",
				HTTPClientConfig: globalHTTPConfig,
				Metadata:         make(map[string]any),
			}
			job.Metadata["manual"] = manual
			runJobs([]utils.FilchJob{job})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")
	cmd.Flags().BoolVar(&manual, "manual", false, "Manually select the release asset")
	return cmd
}
