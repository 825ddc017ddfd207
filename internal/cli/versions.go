package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "versions <file_path>",
		Short: "List the genes recorded for a file, newest first",
		RunE:  runVersions,
	}

	RootCmd.AddCommand(cmd)
}

type versionsResult struct {
	FilePath      string              `json:"file_path"`
	Versions      []store.GeneVersion `json:"versions"`
	TotalVersions int                 `json:"total_versions"`
}

func runVersions(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return usageErr(cmd, "File path required for versions command")
	}
	filePath := args[0]

	return withSession(cmd, func(s *session) (any, error) {
		versions, err := s.store.Versions(cmd.Context(), filePath)
		if err != nil {
			return nil, err
		}
		return versionsResult{FilePath: filePath, Versions: versions, TotalVersions: len(versions)}, nil
	})
}
