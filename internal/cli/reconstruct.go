package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reconstruct <file_path> [version]",
		Short: "Rebuild a file from its recorded genes",
		Long: "Rebuild a file from its recorded genes. The most recent full_file gene wins; " +
			"otherwise function genes are concatenated newest first. A version other than " +
			"\"latest\" restricts the walk to gene ids containing it.",
		RunE: runReconstruct,
	}

	RootCmd.AddCommand(cmd)
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return usageErr(cmd, "File path required for reconstruction")
	}
	filePath := args[0]
	version := store.LatestVersion
	if len(args) > 1 {
		version = args[1]
	}

	return withSession(cmd, func(s *session) (any, error) {
		return s.store.Reconstruct(cmd.Context(), filePath, version)
	})
}
