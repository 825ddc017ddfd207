package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/ingest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "register [file]",
		Short: "Register genes from JSON lines",
		Long: "Register genes from newline-delimited JSON (file argument or stdin). " +
			"Each line is one gene and is recorded under its own file_path.",
		RunE: runRegister,
	}

	cmd.Flags().IntP("workers", "w", 0, "Concurrent workers (default from config)")

	RootCmd.AddCommand(cmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")

	var in io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return emitErr(cmd, gerrors.Wrap(gerrors.InvalidInput, "open input", err))
		}
		defer f.Close()
		in = f
	}

	return withSession(cmd, func(s *session) (any, error) {
		if workers <= 0 {
			workers = s.cfg.Workers
		}
		return ingest.Run(cmd.Context(), s.store, in, ingest.Options{
			Workers: workers,
			Logger:  s.log,
		})
	})
}
