// Package evolution classifies the change between two versions of a gene.
package evolution

import (
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/normalize"
)

// Default similarity thresholds.
const (
	DefaultMutationThreshold = 0.8
	DefaultRefactorThreshold = 0.3
)

// Evolution is the result of comparing two gene versions.
type Evolution struct {
	Type           model.EvolutionType `json:"type"`
	Confidence     float64             `json:"confidence"`
	OldFingerprint string              `json:"old_fingerprint"`
	NewFingerprint string              `json:"new_fingerprint"`
	Similarity     float64             `json:"similarity"`
}

// Classifier labels transitions between gene versions.
type Classifier struct {
	MutationThreshold float64
	RefactorThreshold float64
	Normalize         normalize.Options
}

// NewClassifier returns a Classifier with the default thresholds.
func NewClassifier(opts normalize.Options) *Classifier {
	return &Classifier{
		MutationThreshold: DefaultMutationThreshold,
		RefactorThreshold: DefaultRefactorThreshold,
		Normalize:         opts,
	}
}

// Classify compares older and newer. Identical fingerprints short-circuit to
// no_change; otherwise the Jaccard similarity of their token sets picks
// mutation, major_refactor or replacement. Thresholds are exclusive: a
// similarity equal to a threshold falls into the lower bucket.
func (c *Classifier) Classify(older, newer model.Gene) Evolution {
	oldFP := normalize.Fingerprint(older.Content, older.Type, older.Name, c.Normalize)
	newFP := normalize.Fingerprint(newer.Content, newer.Type, newer.Name, c.Normalize)

	if oldFP == newFP {
		return Evolution{
			Type:           model.EvolutionNoChange,
			Confidence:     1.0,
			OldFingerprint: oldFP,
			NewFingerprint: newFP,
			Similarity:     1.0,
		}
	}

	sim := c.Similarity(older.Content, newer.Content)
	ev := Evolution{
		OldFingerprint: oldFP,
		NewFingerprint: newFP,
		Similarity:     sim,
	}

	switch {
	case sim > c.MutationThreshold:
		ev.Type = model.EvolutionMutation
		ev.Confidence = sim
	case sim > c.RefactorThreshold:
		ev.Type = model.EvolutionMajorRefactor
		ev.Confidence = sim
	default:
		ev.Type = model.EvolutionReplacement
		ev.Confidence = 1 - sim
	}
	return ev
}

// Similarity is the Jaccard index of the normalized token sets of a and b.
func (c *Classifier) Similarity(a, b string) float64 {
	return Jaccard(normalize.Tokens(a, c.Normalize), normalize.Tokens(b, c.Normalize))
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 1.0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}
