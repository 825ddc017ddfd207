package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/evolution"
	"github.com/rcliao/gene-ledger/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "classify <old.json> <new.json>",
		Short: "Label the change between two gene versions",
		Long: "Label the change between two gene versions as no_change, mutation, " +
			"major_refactor or replacement. With --record the result is appended to the " +
			"evolution ledger with the old gene as parent.",
		RunE: runClassify,
	}

	cmd.Flags().Bool("record", false, "Append the classification to the ledger")
	cmd.Flags().String("file", "", "File path recorded with the entry (default: new gene's file_path)")

	RootCmd.AddCommand(cmd)
}

type classifyResult struct {
	evolution.Evolution
	Recorded bool `json:"recorded"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	record, _ := cmd.Flags().GetBool("record")
	filePath, _ := cmd.Flags().GetString("file")

	if len(args) < 2 {
		return usageErr(cmd, "Old and new gene files required for classify command")
	}
	older, err := readGene(cmd, args[0])
	if err != nil {
		return emitErr(cmd, err)
	}
	newer, err := readGene(cmd, args[1])
	if err != nil {
		return emitErr(cmd, err)
	}

	return withSession(cmd, func(s *session) (any, error) {
		if !record {
			return classifyResult{Evolution: s.store.Classify(older, newer)}, nil
		}
		ev, err := s.store.Evolve(cmd.Context(), older, newer, filePath)
		if err != nil {
			return nil, err
		}
		return classifyResult{Evolution: *ev, Recorded: ev.Type != model.EvolutionNoChange}, nil
	})
}
