package evolution

import (
	"math"
	"strings"
	"testing"

	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/normalize"
)

func gene(name, content string) model.Gene {
	return model.Gene{Type: model.TypeFunction, Name: name, Content: content}
}

func TestClassify_NoChange(t *testing.T) {
	c := NewClassifier(normalize.DefaultOptions())

	ev := c.Classify(
		gene("sum", "function sum(a,b){return a+b;}"),
		gene("Sum", "  function sum(a,b){return a+b;}\n// trailing comment"),
	)
	if ev.Type != model.EvolutionNoChange {
		t.Fatalf("expected no_change, got %s", ev.Type)
	}
	if ev.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", ev.Confidence)
	}
	if ev.OldFingerprint != ev.NewFingerprint {
		t.Error("expected matching fingerprints")
	}
}

func TestClassify_Mutation(t *testing.T) {
	c := NewClassifier(normalize.DefaultOptions())

	old := gene("sum", "function sum ( a , b ) {\n  return a + b ;\n}")
	updated := gene("sum", "function sum ( a , b , c ) {\n  return a + b + c ;\n}")

	ev := c.Classify(old, updated)
	if ev.Type != model.EvolutionMutation {
		t.Fatalf("expected mutation, got %s (similarity %v)", ev.Type, ev.Similarity)
	}
	// 12 shared tokens, "c" added.
	want := 12.0 / 13.0
	if math.Abs(ev.Similarity-want) > 1e-9 {
		t.Errorf("expected similarity %v, got %v", want, ev.Similarity)
	}
	if ev.Confidence != ev.Similarity {
		t.Errorf("expected confidence to equal similarity, got %v vs %v", ev.Confidence, ev.Similarity)
	}
	if ev.OldFingerprint == ev.NewFingerprint {
		t.Error("expected different fingerprints")
	}
}

func TestClassify_Boundaries(t *testing.T) {
	c := NewClassifier(normalize.DefaultOptions())

	tests := []struct {
		name       string
		old, new   string
		wantType   model.EvolutionType
		wantSim    float64
		wantConfid float64
	}{
		{
			// 4 shared out of 5 total
			name: "exactly mutation threshold",
			old:  "a b c d e", new: "a b c d",
			wantType: model.EvolutionMajorRefactor, wantSim: 0.8, wantConfid: 0.8,
		},
		{
			// 3 shared out of 10 total
			name: "exactly refactor threshold",
			old:  "a b c d e f g", new: "a b c h i j",
			wantType: model.EvolutionReplacement, wantSim: 0.3, wantConfid: 0.7,
		},
		{
			name: "disjoint",
			old:  "a b", new: "c d",
			wantType: model.EvolutionReplacement, wantSim: 0, wantConfid: 1,
		},
		{
			// 5 shared out of 6 total
			name: "just above mutation threshold",
			old:  "a b c d e f", new: "a b c d e",
			wantType: model.EvolutionMutation, wantSim: 5.0 / 6.0, wantConfid: 5.0 / 6.0,
		},
		{
			// 2 shared out of 5 total
			name: "refactor band",
			old:  "a b c d", new: "a b e",
			wantType: model.EvolutionMajorRefactor, wantSim: 0.4, wantConfid: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := c.Classify(gene("f", tt.old), gene("f", tt.new))
			if ev.Type != tt.wantType {
				t.Errorf("expected %s, got %s (similarity %v)", tt.wantType, ev.Type, ev.Similarity)
			}
			if math.Abs(ev.Similarity-tt.wantSim) > 1e-9 {
				t.Errorf("expected similarity %v, got %v", tt.wantSim, ev.Similarity)
			}
			if math.Abs(ev.Confidence-tt.wantConfid) > 1e-9 {
				t.Errorf("expected confidence %v, got %v", tt.wantConfid, ev.Confidence)
			}
		})
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	c := &Classifier{MutationThreshold: 0.5, RefactorThreshold: 0.1}

	ev := c.Classify(gene("f", "a b c d"), gene("f", "a b e"))
	if ev.Type != model.EvolutionMajorRefactor {
		t.Errorf("expected major_refactor at 0.4 with 0.5 threshold, got %s", ev.Type)
	}

	ev = c.Classify(gene("f", "a b c d e f"), gene("f", "a b c d e"))
	if ev.Type != model.EvolutionMutation {
		t.Errorf("expected mutation, got %s", ev.Type)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	c := NewClassifier(normalize.DefaultOptions())
	pairs := [][2]string{
		{"a b c", "b c d"},
		{"", "x"},
		{"func f() {}", "func g() { return }"},
		{strings.Repeat("x ", 50), "x y"},
	}
	for _, p := range pairs {
		ab := c.Similarity(p[0], p[1])
		ba := c.Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("similarity(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestJaccard_EmptySets(t *testing.T) {
	if got := Jaccard(nil, nil); got != 1.0 {
		t.Errorf("expected 1.0 for two empty sets, got %v", got)
	}
	if got := Jaccard(map[string]struct{}{"a": {}}, nil); got != 0.0 {
		t.Errorf("expected 0.0 for one empty set, got %v", got)
	}
}
