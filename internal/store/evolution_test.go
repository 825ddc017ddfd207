package store

import (
	"context"
	"testing"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/model"
)

func TestHistory_IncludesDescendants(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Register(ctx, sumGene("G-1"), "a.js")
	s.Register(ctx, sumGene("G-2"), "b.js")
	s.Register(ctx, sumGene("G-3"), "c.js")

	hist, err := s.History(ctx, "G-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected creation plus 2 duplications, got %d", len(hist))
	}

	if hist[0].EvolutionType != model.EvolutionCreation || hist[0].GeneID != "G-1" {
		t.Errorf("expected creation of G-1 first, got %+v", hist[0])
	}
	if hist[0].ParentGeneID != "" {
		t.Errorf("expected no parent on creation, got %q", hist[0].ParentGeneID)
	}
	if hist[0].ConfidenceScore != 1.0 {
		t.Errorf("expected creation confidence 1.0, got %v", hist[0].ConfidenceScore)
	}
	if hist[0].Metadata[model.MetaFile] != "a.js" {
		t.Errorf("expected file metadata a.js, got %v", hist[0].Metadata)
	}
	// JSON numbers decode as float64.
	if hist[0].Metadata[model.MetaSize] != float64(len(sumGene("").Content)) {
		t.Errorf("expected size metadata, got %v", hist[0].Metadata[model.MetaSize])
	}

	for i, rec := range hist[1:] {
		if rec.EvolutionType != model.EvolutionDuplication {
			t.Errorf("record %d: expected duplication, got %s", i+1, rec.EvolutionType)
		}
		if rec.ParentGeneID != "G-1" {
			t.Errorf("record %d: expected parent G-1, got %q", i+1, rec.ParentGeneID)
		}
		if rec.ConfidenceScore != 0.95 {
			t.Errorf("record %d: expected confidence 0.95, got %v", i+1, rec.ConfidenceScore)
		}
		if rec.Metadata[model.MetaOriginalFile] != "a.js" {
			t.Errorf("record %d: expected original_file a.js, got %v", i+1, rec.Metadata)
		}
	}
	if hist[1].GeneID != "G-2" || hist[2].GeneID != "G-3" {
		t.Errorf("expected timestamp order G-2, G-3, got %s, %s", hist[1].GeneID, hist[2].GeneID)
	}

	own, _ := s.History(ctx, "G-3")
	if len(own) != 1 || own[0].Metadata[model.MetaDuplicateFile] != "c.js" {
		t.Errorf("expected single duplication entry for G-3, got %+v", own)
	}
}

func TestHistory_Empty(t *testing.T) {
	s := newTestStore(t)
	hist, err := s.History(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("expected empty history, got %d", len(hist))
	}
}

func TestHistory_MalformedMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Register(ctx, sumGene("G-1"), "a.js")
	s.db.Exec(`UPDATE gene_evolution SET metadata = '[broken' WHERE gene_id = 'G-1'`)

	_, err := s.History(ctx, "G-1")
	if !gerrors.Is(err, gerrors.MalformedRecord) {
		t.Errorf("expected MALFORMED_RECORD, got %v", err)
	}
}

func TestEvolve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := model.Gene{ID: "G-1", Type: model.TypeFunction, Name: "sum",
		Content: "function sum ( a , b ) {\n  return a + b ;\n}"}
	next := model.Gene{ID: "G-2", Type: model.TypeFunction, Name: "sum",
		Content: "function sum ( a , b , c ) {\n  return a + b + c ;\n}"}

	s.Register(ctx, old, "a.js")
	s.Register(ctx, next, "a.js")

	ev, err := s.Evolve(ctx, old, next, "a.js")
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if ev.Type != model.EvolutionMutation {
		t.Fatalf("expected mutation, got %s", ev.Type)
	}

	hist, _ := s.History(ctx, "G-1")
	var found bool
	for _, rec := range hist {
		if rec.EvolutionType == model.EvolutionMutation {
			found = true
			if rec.GeneID != "G-2" || rec.ParentGeneID != "G-1" {
				t.Errorf("expected G-2 <- G-1, got %s <- %s", rec.GeneID, rec.ParentGeneID)
			}
			if rec.ConfidenceScore != ev.Confidence {
				t.Errorf("expected confidence %v, got %v", ev.Confidence, rec.ConfidenceScore)
			}
			if rec.Metadata[model.MetaSimilarity] != ev.Similarity {
				t.Errorf("expected similarity metadata %v, got %v", ev.Similarity, rec.Metadata[model.MetaSimilarity])
			}
		}
	}
	if !found {
		t.Error("expected mutation record in G-1 history")
	}
}

func TestEvolve_NoChangeWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := sumGene("G-1")
	b := sumGene("G-2")
	ev, err := s.Evolve(ctx, a, b, "a.js")
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if ev.Type != model.EvolutionNoChange {
		t.Errorf("expected no_change, got %s", ev.Type)
	}
	hist, _ := s.History(ctx, "G-1")
	if len(hist) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(hist))
	}

	if _, err := s.Evolve(ctx, model.Gene{}, b, ""); !gerrors.Is(err, gerrors.InvalidInput) {
		t.Errorf("expected INVALID_INPUT without ids, got %v", err)
	}
}

func TestClassify_UsesConfiguredThresholds(t *testing.T) {
	mutation, refactor := 0.95, 0.5
	s, err := NewSQLiteStore(Options{
		Path:              t.TempDir() + "/thresholds.db",
		MutationThreshold: &mutation,
		RefactorThreshold: &refactor,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	older := model.Gene{Type: "function", Name: "f", Content: "a b c d e f"}
	newer := model.Gene{Type: "function", Name: "f", Content: "a b c d e"}

	ev := s.Classify(older, newer)
	if ev.Type != model.EvolutionMajorRefactor {
		t.Errorf("expected major_refactor for 5/6 with 0.95 threshold, got %s", ev.Type)
	}
}

func TestClassify_ZeroRefactorThreshold(t *testing.T) {
	older := model.Gene{Type: "function", Name: "f", Content: "a b c d e"}
	newer := model.Gene{Type: "function", Name: "f", Content: "a x y z w"}

	zero := 0.0
	s, err := NewSQLiteStore(Options{Path: t.TempDir() + "/zero.db", RefactorThreshold: &zero})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	// 1/9 overlap: above a zero threshold, below the 0.3 default.
	if ev := s.Classify(older, newer); ev.Type != model.EvolutionMajorRefactor {
		t.Errorf("expected major_refactor with zero threshold, got %s", ev.Type)
	}

	def := newTestStore(t)
	if ev := def.Classify(older, newer); ev.Type != model.EvolutionReplacement {
		t.Errorf("expected replacement with default thresholds, got %s", ev.Type)
	}
}
