package store

import (
	"context"
	"fmt"
	"math"
	"os"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
)

// topDuplicatesLimit caps Report.TopDuplicates.
const topDuplicatesLimit = 10

// Report holds deduplication statistics.
type Report struct {
	DBPath               string             `json:"db_path"`
	DBSizeBytes          int64              `json:"db_size_bytes"`
	UniqueContents       int                `json:"unique_contents"`
	TotalInstances       int                `json:"total_instances"`
	DuplicatedContents   int                `json:"duplicated_contents"`
	DuplicateInstances   int                `json:"duplicate_instances"`
	EfficiencyPercentage float64            `json:"efficiency_percentage"`
	TopDuplicates        []DuplicateSummary `json:"top_duplicates"`
	Recommendations      []string           `json:"recommendations"`
}

// DuplicateSummary is one heavily shared fingerprint.
type DuplicateSummary struct {
	Fingerprint string   `json:"fingerprint"`
	GeneID      string   `json:"gene_id"`
	Count       int      `json:"count"`
	Files       []string `json:"files"`
}

// Report aggregates the content hash table into an efficiency metric and
// recommendations.
func (s *SQLiteStore) Report(ctx context.Context) (*Report, error) {
	r := &Report{DBPath: s.path, TopDuplicates: []DuplicateSummary{}}

	if info, err := os.Stat(s.path); err == nil {
		r.DBSizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(occurrence_count), 0) FROM content_hashes`).
		Scan(&r.UniqueContents, &r.TotalInstances)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "count contents", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(occurrence_count - 1), 0)
		 FROM content_hashes WHERE occurrence_count > 1`).
		Scan(&r.DuplicatedContents, &r.DuplicateInstances)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "count duplicates", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, first_seen, last_seen, occurrence_count, representative_gene_id, file_paths, metadata
		 FROM content_hashes
		 WHERE occurrence_count > 1
		 ORDER BY occurrence_count DESC, first_seen ASC
		 LIMIT ?`, topDuplicatesLimit)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "top duplicates", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanHashRecord(rows)
		if err != nil {
			return nil, err
		}
		r.TopDuplicates = append(r.TopDuplicates, DuplicateSummary{
			Fingerprint: rec.Fingerprint,
			GeneID:      rec.RepresentativeGeneID,
			Count:       rec.OccurrenceCount,
			Files:       rec.FilePaths,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "top duplicates", err)
	}

	efficiency := Efficiency(r.DuplicateInstances, r.TotalInstances)
	r.EfficiencyPercentage = math.Round(efficiency*100) / 100
	r.Recommendations = Recommendations(efficiency, r.DuplicatedContents)

	return r, nil
}

// Efficiency is the share of instances that are not duplicates, as a
// percentage. An empty store is 100% efficient.
func Efficiency(duplicateInstances, totalInstances int) float64 {
	if totalInstances == 0 {
		return 100
	}
	return 100 * (1 - float64(duplicateInstances)/float64(totalInstances))
}

// Recommendations applies the report rules in a fixed order; the current
// efficiency line is always last.
func Recommendations(efficiency float64, duplicatedContents int) []string {
	var recs []string
	if efficiency < 80 {
		recs = append(recs, "High duplication rate detected: consider refactoring")
	}
	if duplicatedContents > 50 {
		recs = append(recs, "Many duplicated functions: extract shared utilities")
	}
	if efficiency > 95 {
		recs = append(recs, "Excellent deduplication rate: system is well optimized")
	}
	recs = append(recs, fmt.Sprintf("Current efficiency: %.1f%%", efficiency))
	return recs
}
