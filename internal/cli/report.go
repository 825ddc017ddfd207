package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show deduplication statistics",
		RunE:  runReport,
	}

	RootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) (any, error) {
		return s.store.Report(cmd.Context())
	})
}
