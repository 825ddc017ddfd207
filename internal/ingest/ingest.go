// Package ingest registers a stream of JSON-lines genes with a pool of
// workers.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/logging"
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/store"
)

// maxLineBytes bounds a single encoded gene.
const maxLineBytes = 16 << 20

// Registrar is the subset of the store used by Run.
type Registrar interface {
	Fingerprint(gene model.Gene) string
	Register(ctx context.Context, gene model.Gene, filePath string) (*store.RegistrationResult, error)
}

// Result is the outcome for one input line.
type Result struct {
	Line         int                       `json:"line"`
	GeneID       string                    `json:"gene_id,omitempty"`
	Registration *store.RegistrationResult `json:"registration,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Code         gerrors.ErrorCode         `json:"code,omitempty"`
}

// Summary aggregates a Run.
type Summary struct {
	Total    int      `json:"total"`
	Created  int      `json:"created"`
	Linked   int      `json:"linked"`
	Replayed int      `json:"replayed"`
	Failed   int      `json:"failed"`
	Results  []Result `json:"results"`
}

// Options configures Run.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

type entry struct {
	idx  int
	gene model.Gene
}

// Run decodes one gene per non-blank line of r and registers each under
// its own file_path. Genes sharing a fingerprint are registered in input
// order so the earliest line becomes the representative; distinct
// fingerprints are spread over opts.Workers goroutines. Per-line failures
// are reported in the Summary; only read errors and cancellation are
// returned.
func Run(ctx context.Context, reg Registrar, r io.Reader, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results, groups, order, err := decode(reg, r)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, fp := range order {
		batch := groups[fp]
		g.Go(func() error {
			for _, e := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := reg.Register(gctx, e.gene, e.gene.FilePath)
				if err != nil {
					results[e.idx].Error = err.Error()
					results[e.idx].Code = gerrors.CodeOf(err)
					log.Warn("register failed", "line", results[e.idx].Line, "gene_id", e.gene.ID, "error", err)
					continue
				}
				results[e.idx].Registration = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(results), Results: results}
	for _, res := range results {
		switch {
		case res.Registration == nil:
			sum.Failed++
		case res.Registration.Replayed:
			sum.Replayed++
		case res.Registration.IsDuplicate:
			sum.Linked++
		default:
			sum.Created++
		}
	}
	log.Info("ingest complete",
		"total", sum.Total,
		"created", sum.Created,
		"linked", sum.Linked,
		"replayed", sum.Replayed,
		"failed", sum.Failed)
	return sum, nil
}

// decode reads every line up front. Lines that fail to decode get a
// MALFORMED_RECORD result and are not scheduled.
func decode(reg Registrar, r io.Reader) ([]Result, map[string][]entry, []string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	results := []Result{}
	groups := make(map[string][]entry)
	var order []string

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		res := Result{Line: line}
		var gene model.Gene
		if err := json.Unmarshal([]byte(text), &gene); err != nil {
			res.Error = gerrors.Wrap(gerrors.MalformedRecord, "decode gene", err).Error()
			res.Code = gerrors.MalformedRecord
			results = append(results, res)
			continue
		}
		res.GeneID = gene.ID
		results = append(results, res)

		fp := reg.Fingerprint(gene)
		if _, ok := groups[fp]; !ok {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], entry{idx: len(results) - 1, gene: gene})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, gerrors.Wrap(gerrors.InvalidInput, "read genes", err)
	}
	return results, groups, order, nil
}
