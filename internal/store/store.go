// Package store provides the gene ledger storage interface and SQLite implementation.
package store

import (
	"context"
	"log/slog"

	"github.com/rcliao/gene-ledger/internal/evolution"
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/normalize"
)

// Registration actions.
const (
	ActionCreatedNew       = "created_new"
	ActionLinkedToExisting = "linked_to_existing"
)

// LatestVersion selects every gene recorded for a path.
const LatestVersion = "latest"

// Options configures a store at construction.
type Options struct {
	Path              string
	Normalize         normalize.Options
	// Nil thresholds keep the classifier defaults; zero is a valid setting.
	MutationThreshold *float64
	RefactorThreshold *float64
	Logger            *slog.Logger
}

// RegistrationResult describes the outcome of Register.
type RegistrationResult struct {
	IsDuplicate          bool   `json:"is_duplicate"`
	GeneID               string `json:"gene_id"`
	RepresentativeGeneID string `json:"representative_gene_id"`
	OccurrenceCount      int    `json:"occurrence_count"`
	Fingerprint          string `json:"fingerprint"`
	Action               string `json:"action"`
	// Replayed is set when the gene id was already registered and the call
	// changed nothing.
	Replayed bool `json:"replayed,omitempty"`
}

// ReconstructionResult is a file assembled from its genes.
type ReconstructionResult struct {
	FilePath             string   `json:"file_path"`
	Version              string   `json:"version"`
	ReconstructedContent string   `json:"reconstructed_content"`
	GeneCount            int      `json:"gene_count"`
	GenesUsed            []string `json:"genes_used"`
	ContentHash          string   `json:"content_hash"`
}

// FileSummary is one row of ListFiles.
type FileSummary struct {
	FilePath   string `json:"file_path"`
	GeneCount  int    `json:"gene_count"`
	LastUpdate string `json:"last_update"`
}

// GeneVersion is one row of Versions.
type GeneVersion struct {
	GeneID      string `json:"gene_id"`
	CreatedAt   string `json:"created_at"`
	Actor       string `json:"actor"`
	ContentType string `json:"content_type"`
	ShortHash   string `json:"short_hash"`
}

// Store defines the gene ledger interface.
type Store interface {
	// IsDuplicate reports whether gene's fingerprint is already known and,
	// if so, the representative gene id.
	IsDuplicate(ctx context.Context, gene model.Gene) (bool, string, error)

	// Register records gene as seen in filePath.
	Register(ctx context.Context, gene model.Gene, filePath string) (*RegistrationResult, error)

	// Classify labels the change from older to newer without writing anything.
	Classify(older, newer model.Gene) evolution.Evolution

	// Evolve classifies and appends a ledger entry linking newer to older.
	Evolve(ctx context.Context, older, newer model.Gene, filePath string) (*evolution.Evolution, error)

	// History returns ledger entries for or descending from geneID.
	History(ctx context.Context, geneID string) ([]model.EvolutionRecord, error)

	// Reconstruct assembles a file from its recorded genes.
	Reconstruct(ctx context.Context, filePath, version string) (*ReconstructionResult, error)

	// ListFiles enumerates paths with recorded genes.
	ListFiles(ctx context.Context) ([]FileSummary, error)

	// Versions enumerates genes recorded for filePath, newest first.
	Versions(ctx context.Context, filePath string) ([]GeneVersion, error)

	// Report aggregates deduplication statistics.
	Report(ctx context.Context) (*Report, error)

	// Close closes the store.
	Close() error
}
