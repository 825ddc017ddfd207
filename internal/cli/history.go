package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history <gene_id>",
		Short: "Show ledger entries for a gene and its descendants",
		RunE:  runHistory,
	}

	RootCmd.AddCommand(cmd)
}

type historyResult struct {
	GeneID  string                  `json:"gene_id"`
	Records []model.EvolutionRecord `json:"records"`
	Total   int                     `json:"total"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return usageErr(cmd, "Gene id required for history command")
	}
	geneID := args[0]

	return withSession(cmd, func(s *session) (any, error) {
		records, err := s.store.History(cmd.Context(), geneID)
		if err != nil {
			return nil, err
		}
		return historyResult{GeneID: geneID, Records: records, Total: len(records)}, nil
	})
}
