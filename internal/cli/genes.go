package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/model"
)

// readGene decodes one gene from a JSON file, or from stdin when path is "-".
func readGene(cmd *cobra.Command, path string) (model.Gene, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Gene{}, gerrors.Wrap(gerrors.InvalidInput, "read "+path, err)
	}

	var g model.Gene
	if err := json.Unmarshal(data, &g); err != nil {
		return model.Gene{}, gerrors.Wrap(gerrors.MalformedRecord, "parse "+path, err)
	}
	return g, nil
}
