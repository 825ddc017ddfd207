package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/normalize"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check <gene.json>",
		Short: "Report whether a gene is already known",
		Long:  "Report whether a gene's fingerprint is already recorded. Nothing is written.",
		RunE:  runCheck,
	}

	RootCmd.AddCommand(cmd)
}

type checkResult struct {
	IsDuplicate          bool   `json:"is_duplicate"`
	RepresentativeGeneID string `json:"representative_gene_id,omitempty"`
	Fingerprint          string `json:"fingerprint"`
	ShortHash            string `json:"short_hash"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return usageErr(cmd, "Gene file required for check command")
	}
	gene, err := readGene(cmd, args[0])
	if err != nil {
		return emitErr(cmd, err)
	}

	return withSession(cmd, func(s *session) (any, error) {
		dup, rep, err := s.store.IsDuplicate(cmd.Context(), gene)
		if err != nil {
			return nil, err
		}
		fp := s.store.Fingerprint(gene)
		return checkResult{
			IsDuplicate:          dup,
			RepresentativeGeneID: rep,
			Fingerprint:          fp,
			ShortHash:            normalize.Short(fp),
		}, nil
	})
}
