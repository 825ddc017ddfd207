// Package model defines the core gene data types.
package model

import "time"

// Gene types with special meaning during reconstruction. Other types are
// accepted and deduplicated but never assembled into file content.
const (
	TypeFunction = "function"
	TypeFullFile = "full_file"
)

// Gene is a named, typed source fragment handed over by the extractor.
type Gene struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	FilePath   string    `json:"file_path"`
	CreatedAt  time.Time `json:"created_at"`
	Actor      string    `json:"actor,omitempty"`
	Complexity int       `json:"complexity,omitempty"`
}

// ContentHashRecord is the content-address entry shared by every gene
// whose fingerprint matches.
type ContentHashRecord struct {
	Fingerprint          string         `json:"fingerprint"`
	FirstSeen            time.Time      `json:"first_seen"`
	LastSeen             time.Time      `json:"last_seen"`
	OccurrenceCount      int            `json:"occurrence_count"`
	RepresentativeGeneID string         `json:"representative_gene_id"`
	FilePaths            []string       `json:"file_paths"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// EvolutionType labels how a gene came to exist relative to its parent.
type EvolutionType string

const (
	EvolutionCreation      EvolutionType = "creation"
	EvolutionMutation      EvolutionType = "mutation"
	EvolutionDuplication   EvolutionType = "duplication"
	EvolutionMajorRefactor EvolutionType = "major_refactor"
	EvolutionReplacement   EvolutionType = "replacement"
	// EvolutionNoChange is only ever returned by classification; it is
	// never written to the ledger.
	EvolutionNoChange EvolutionType = "no_change"
)

// ValidEvolutionTypes are the types that may appear in the ledger.
var ValidEvolutionTypes = map[EvolutionType]bool{
	EvolutionCreation:      true,
	EvolutionMutation:      true,
	EvolutionDuplication:   true,
	EvolutionMajorRefactor: true,
	EvolutionReplacement:   true,
}

// EvolutionRecord is an append-only ledger entry.
type EvolutionRecord struct {
	ID              string         `json:"id"`
	GeneID          string         `json:"gene_id"`
	Fingerprint     string         `json:"fingerprint"`
	ParentGeneID    string         `json:"parent_gene_id,omitempty"`
	EvolutionType   EvolutionType  `json:"evolution_type"`
	ConfidenceScore float64        `json:"confidence_score"`
	Timestamp       time.Time      `json:"timestamp"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Metadata keys written into ContentHashRecord and EvolutionRecord maps.
const (
	MetaComplexity    = "complexity"
	MetaFile          = "file"
	MetaSize          = "size"
	MetaOriginalFile  = "original_file"
	MetaDuplicateFile = "duplicate_file"
	MetaSimilarity    = "similarity"
)
