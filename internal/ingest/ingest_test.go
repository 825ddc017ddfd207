package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(store.Options{Path: filepath.Join(t.TempDir(), "ingest.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func geneLine(id, name, content, path string) string {
	return fmt.Sprintf(`{"id":%q,"type":"function","name":%q,"content":%q,"file_path":%q}`, id, name, content, path)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	input := strings.Join([]string{
		geneLine("G-1", "sum", "function sum(a,b){return a+b;}", "a.js"),
		geneLine("G-2", "sum", "function sum(a,b){return a+b;}", "b.js"),
		"",
		`{not json`,
		geneLine("H-1", "mul", "function mul(a,b){return a*b;}", "a.js"),
		geneLine("X-1", "noPath", "noop", ""),
	}, "\n")

	sum, err := Run(ctx, s, strings.NewReader(input), Options{Workers: 4})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if sum.Total != 5 {
		t.Errorf("expected 5 results (blank skipped), got %d", sum.Total)
	}
	if sum.Created != 2 || sum.Linked != 1 || sum.Failed != 2 {
		t.Errorf("expected 2 created, 1 linked, 2 failed, got %+v", sum)
	}

	byLine := map[int]Result{}
	for _, r := range sum.Results {
		byLine[r.Line] = r
	}
	if r := byLine[2]; r.Registration == nil || r.Registration.RepresentativeGeneID != "G-1" {
		t.Errorf("expected G-2 linked to G-1, got %+v", r)
	}
	if r := byLine[4]; r.Code != gerrors.MalformedRecord {
		t.Errorf("expected MALFORMED_RECORD on line 4, got %+v", r)
	}
	if r := byLine[6]; r.Code != gerrors.InvalidInput || r.GeneID != "X-1" {
		t.Errorf("expected INVALID_INPUT for missing path, got %+v", r)
	}
}

func TestRun_FirstLineIsRepresentative(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, geneLine(fmt.Sprintf("S-%02d", i), "sum", "return a + b", fmt.Sprintf("f%d.js", i)))
		lines = append(lines, geneLine(fmt.Sprintf("U-%02d", i), fmt.Sprintf("u%d", i), "noop", "u.js"))
	}

	sum, err := Run(ctx, s, strings.NewReader(strings.Join(lines, "\n")), Options{Workers: 8})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Created != 21 || sum.Linked != 19 {
		t.Errorf("expected 21 created, 19 linked, got %+v", sum)
	}

	lookup := model.Gene{ID: "lookup", Type: "function", Name: "sum", Content: "return a + b"}
	dup, rep, err := s.IsDuplicate(ctx, lookup)
	if err != nil || !dup || rep != "S-00" {
		t.Errorf("expected S-00 as representative, got %v %q %v", dup, rep, err)
	}
}

func TestRun_Resubmission(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	input := geneLine("G-1", "sum", "return a + b", "a.js")

	if _, err := Run(ctx, s, strings.NewReader(input), Options{}); err != nil {
		t.Fatal(err)
	}
	sum, err := Run(ctx, s, strings.NewReader(input), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Replayed != 1 || sum.Created != 0 {
		t.Errorf("expected one replay, got %+v", sum)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestStore(t)

	_, err := Run(ctx, s, strings.NewReader(geneLine("G-1", "sum", "x", "a.js")), Options{Workers: 2})
	if err == nil {
		t.Error("expected error for canceled context")
	}
}
