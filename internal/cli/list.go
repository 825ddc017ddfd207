package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files with recorded genes",
		RunE:  runList,
	}

	RootCmd.AddCommand(cmd)
}

type listResult struct {
	AvailableFiles []store.FileSummary `json:"available_files"`
	TotalFiles     int                 `json:"total_files"`
}

func runList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) (any, error) {
		files, err := s.store.ListFiles(cmd.Context())
		if err != nil {
			return nil, err
		}
		return listResult{AvailableFiles: files, TotalFiles: len(files)}, nil
	})
}
