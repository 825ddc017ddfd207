package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded genes",
		Long: "Export recorded genes in registration order. Filter by file with --file. " +
			"With --lines the genes are written as newline-delimited JSON that register accepts.",
		RunE: runExport,
	}

	cmd.Flags().String("file", "", "Filter by file path")
	cmd.Flags().Bool("lines", false, "Write raw JSON lines instead of a result object")

	RootCmd.AddCommand(cmd)
}

type exportResult struct {
	Genes []model.Gene `json:"genes"`
	Total int          `json:"total"`
}

func runExport(cmd *cobra.Command, args []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	lines, _ := cmd.Flags().GetBool("lines")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	genes, err := s.store.ExportGenes(cmd.Context(), filePath)
	if err != nil {
		return emitErr(cmd, err)
	}

	if !lines {
		return emit(cmd, exportResult{Genes: genes, Total: len(genes)})
	}

	out := cmd.OutOrStdout()
	for _, g := range genes {
		b, err := json.Marshal(g)
		if err != nil {
			return emitErr(cmd, err)
		}
		if _, err := fmt.Fprintln(out, string(b)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
