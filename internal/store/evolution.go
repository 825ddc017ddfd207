package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/evolution"
	"github.com/rcliao/gene-ledger/internal/model"
)

func (s *SQLiteStore) appendEvolution(ctx context.Context, q querier, rec model.EvolutionRecord) error {
	if !model.ValidEvolutionTypes[rec.EvolutionType] {
		return gerrors.Newf(gerrors.InvalidInput, "invalid evolution type %q", rec.EvolutionType)
	}
	if rec.ID == "" {
		rec.ID = s.newID()
	}

	var meta *string
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return gerrors.Wrap(gerrors.InvalidInput, "encode evolution metadata", err)
		}
		m := string(b)
		meta = &m
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO gene_evolution (id, gene_id, fingerprint, parent_gene_id, evolution_type, confidence_score, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GeneID, rec.Fingerprint, nullString(rec.ParentGeneID),
		string(rec.EvolutionType), rec.ConfidenceScore, rec.Timestamp.UTC().Format(timeLayout), meta)
	if err != nil {
		return gerrors.Wrap(gerrors.StoreUnavailable, "insert evolution record", err)
	}
	return nil
}

// Classify labels the change from older to newer using the store's
// thresholds and normalization settings.
func (s *SQLiteStore) Classify(older, newer model.Gene) evolution.Evolution {
	return s.classifier.Classify(older, newer)
}

// Evolve classifies the change from older to newer and, unless nothing
// changed, appends a ledger entry for newer citing older as its parent.
func (s *SQLiteStore) Evolve(ctx context.Context, older, newer model.Gene, filePath string) (*evolution.Evolution, error) {
	if older.ID == "" || newer.ID == "" {
		return nil, gerrors.New(gerrors.InvalidInput, "both gene ids are required")
	}
	if filePath == "" {
		filePath = newer.FilePath
	}

	ev := s.classifier.Classify(older, newer)
	if ev.Type == model.EvolutionNoChange {
		return &ev, nil
	}

	err := s.appendEvolution(ctx, s.db, model.EvolutionRecord{
		GeneID:          newer.ID,
		Fingerprint:     ev.NewFingerprint,
		ParentGeneID:    older.ID,
		EvolutionType:   ev.Type,
		ConfidenceScore: ev.Confidence,
		Timestamp:       time.Now().UTC(),
		Metadata: map[string]any{
			model.MetaFile:       filePath,
			model.MetaSimilarity: ev.Similarity,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("gene evolved",
		"gene_id", newer.ID,
		"parent", older.ID,
		"type", ev.Type,
		"similarity", ev.Similarity)
	return &ev, nil
}

// History returns every record whose gene_id or parent_gene_id is geneID,
// oldest first.
func (s *SQLiteStore) History(ctx context.Context, geneID string) ([]model.EvolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, gene_id, fingerprint, parent_gene_id, evolution_type, confidence_score, timestamp, metadata
		 FROM gene_evolution
		 WHERE gene_id = ? OR parent_gene_id = ?
		 ORDER BY timestamp ASC, id ASC`, geneID, geneID)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query history", err)
	}
	defer rows.Close()

	records := []model.EvolutionRecord{}
	for rows.Next() {
		rec, err := scanEvolution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query history", err)
	}
	return records, nil
}

func scanEvolution(row scanner) (model.EvolutionRecord, error) {
	var rec model.EvolutionRecord
	var parent, meta sql.NullString
	var evType, ts string

	err := row.Scan(&rec.ID, &rec.GeneID, &rec.Fingerprint, &parent, &evType,
		&rec.ConfidenceScore, &ts, &meta)
	if err != nil {
		return rec, gerrors.Wrap(gerrors.StoreUnavailable, "scan evolution record", err)
	}

	rec.EvolutionType = model.EvolutionType(evType)
	rec.Timestamp = parseTime(ts)
	if parent.Valid {
		rec.ParentGeneID = parent.String
	}
	if rec.Metadata, err = decodeMeta(meta); err != nil {
		return rec, gerrors.Wrap(gerrors.MalformedRecord, fmt.Sprintf("metadata of evolution record %s", rec.ID), err)
	}
	return rec, nil
}
