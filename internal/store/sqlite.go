package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/evolution"
	"github.com/rcliao/gene-ledger/internal/logging"
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/normalize"
)

// Confidence scores written by Register.
const (
	creationConfidence    = 1.0
	duplicationConfidence = 0.95
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	norm       normalize.Options
	classifier *evolution.Classifier
	log        *slog.Logger

	// writeMu serializes the check-then-write section of Register within
	// the process; the IMMEDIATE transaction covers other processes.
	writeMu sync.Mutex
}

// NewSQLiteStore opens or creates a SQLite database at opts.Path.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, gerrors.New(gerrors.StoreUnavailable, "store path is empty")
	}
	dir := filepath.Dir(opts.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "create db dir", err)
	}

	dsn := opts.Path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "open db", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "open db", err)
	}

	classifier := evolution.NewClassifier(opts.Normalize)
	if opts.MutationThreshold != nil {
		classifier.MutationThreshold = *opts.MutationThreshold
	}
	if opts.RefactorThreshold != nil {
		classifier.RefactorThreshold = *opts.RefactorThreshold
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &SQLiteStore{
		db:         db,
		path:       opts.Path,
		norm:       opts.Normalize,
		classifier: classifier,
		log:        log,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "migrate", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS content_hashes (
		fingerprint            TEXT PRIMARY KEY,
		first_seen             TEXT NOT NULL,
		last_seen              TEXT NOT NULL,
		occurrence_count       INTEGER NOT NULL DEFAULT 1,
		representative_gene_id TEXT NOT NULL,
		file_paths             TEXT NOT NULL,
		metadata               TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_content_hashes_count ON content_hashes(occurrence_count DESC);

	CREATE TABLE IF NOT EXISTS gene_evolution (
		id               TEXT PRIMARY KEY,
		gene_id          TEXT NOT NULL,
		fingerprint      TEXT NOT NULL,
		parent_gene_id   TEXT,
		evolution_type   TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		timestamp        TEXT NOT NULL,
		metadata         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_gene_evolution ON gene_evolution(gene_id);
	CREATE INDEX IF NOT EXISTS idx_parent_gene ON gene_evolution(parent_gene_id);

	CREATE TABLE IF NOT EXISTS genes (
		id            TEXT PRIMARY KEY,
		type          TEXT NOT NULL,
		name          TEXT NOT NULL,
		content       TEXT NOT NULL,
		file_path     TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		actor         TEXT,
		fingerprint   TEXT NOT NULL,
		registered_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_genes_file ON genes(file_path, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) fingerprint(g model.Gene) string {
	return normalize.Fingerprint(g.Content, g.Type, g.Name, s.norm)
}

// IsDuplicate looks up gene's fingerprint without writing anything.
func (s *SQLiteStore) IsDuplicate(ctx context.Context, gene model.Gene) (bool, string, error) {
	var rep string
	err := s.db.QueryRowContext(ctx,
		`SELECT representative_gene_id FROM content_hashes WHERE fingerprint = ?`,
		s.fingerprint(gene)).Scan(&rep)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", gerrors.Wrap(gerrors.StoreUnavailable, "lookup fingerprint", err)
	}
	return true, rep, nil
}

// Register records gene under filePath (gene.FilePath when empty). The
// lookup and the insert or update run in one transaction, so two callers
// racing on a new fingerprint produce one created_new and one
// linked_to_existing. Resubmitting a gene id returns the current state
// with Replayed set and writes nothing.
func (s *SQLiteStore) Register(ctx context.Context, gene model.Gene, filePath string) (*RegistrationResult, error) {
	if gene.ID == "" {
		return nil, gerrors.New(gerrors.InvalidInput, "gene id is required")
	}
	if filePath == "" {
		filePath = gene.FilePath
	}
	if filePath == "" {
		return nil, gerrors.Newf(gerrors.InvalidInput, "file path is required for gene %s", gene.ID)
	}

	fp := s.fingerprint(gene)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "begin register", err)
	}
	defer tx.Rollback()

	// Read the clock only once the write lock is held so ledger timestamps
	// follow commit order.
	now := time.Now().UTC()
	createdAt := gene.CreatedAt.UTC()
	if gene.CreatedAt.IsZero() {
		createdAt = now
	}

	var knownFP string
	err = tx.QueryRowContext(ctx, `SELECT fingerprint FROM genes WHERE id = ?`, gene.ID).Scan(&knownFP)
	switch {
	case err == nil:
		res, err := replayResult(ctx, tx, gene.ID, knownFP)
		if err != nil {
			return nil, err
		}
		s.log.Info("gene already registered", "gene_id", gene.ID, "fingerprint", normalize.Short(knownFP))
		return res, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "lookup gene", err)
	}

	existing, err := getHashRecord(ctx, tx, fp)
	if err != nil && !gerrors.Is(err, gerrors.NotFound) {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO genes (id, type, name, content, file_path, created_at, actor, fingerprint, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gene.ID, gene.Type, gene.Name, gene.Content, filePath,
		createdAt.Format(timeLayout), nullString(gene.Actor), fp, now.Format(timeLayout))
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "insert gene", err)
	}

	var res *RegistrationResult
	if existing == nil {
		res, err = s.insertNew(ctx, tx, gene, fp, filePath, now)
	} else {
		res, err = s.linkExisting(ctx, tx, gene, existing, filePath, now)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "commit register", err)
	}

	s.log.Debug("gene registered",
		"gene_id", gene.ID,
		"file", filePath,
		"action", res.Action,
		"representative", res.RepresentativeGeneID,
		"occurrences", res.OccurrenceCount)
	return res, nil
}

func (s *SQLiteStore) insertNew(ctx context.Context, tx *sql.Tx, gene model.Gene, fp, filePath string, now time.Time) (*RegistrationResult, error) {
	paths, _ := json.Marshal([]string{filePath})
	meta, _ := json.Marshal(map[string]any{model.MetaComplexity: gene.Complexity})
	ts := now.Format(timeLayout)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO content_hashes (fingerprint, first_seen, last_seen, occurrence_count, representative_gene_id, file_paths, metadata)
		 VALUES (?, ?, ?, 1, ?, ?, ?)`,
		fp, ts, ts, gene.ID, string(paths), string(meta))
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "insert content hash", err)
	}

	err = s.appendEvolution(ctx, tx, model.EvolutionRecord{
		GeneID:          gene.ID,
		Fingerprint:     fp,
		EvolutionType:   model.EvolutionCreation,
		ConfidenceScore: creationConfidence,
		Timestamp:       now,
		Metadata: map[string]any{
			model.MetaFile: filePath,
			model.MetaSize: len(gene.Content),
		},
	})
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{
		IsDuplicate:          false,
		GeneID:               gene.ID,
		RepresentativeGeneID: gene.ID,
		OccurrenceCount:      1,
		Fingerprint:          fp,
		Action:               ActionCreatedNew,
	}, nil
}

func (s *SQLiteStore) linkExisting(ctx context.Context, tx *sql.Tx, gene model.Gene, rec *model.ContentHashRecord, filePath string, now time.Time) (*RegistrationResult, error) {
	paths := rec.FilePaths
	if !slices.Contains(paths, filePath) {
		paths = append(paths, filePath)
	}
	pathsJSON, _ := json.Marshal(paths)

	_, err := tx.ExecContext(ctx,
		`UPDATE content_hashes
		 SET last_seen = ?, occurrence_count = occurrence_count + 1, file_paths = ?
		 WHERE fingerprint = ?`,
		now.Format(timeLayout), string(pathsJSON), rec.Fingerprint)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "update content hash", err)
	}

	err = s.appendEvolution(ctx, tx, model.EvolutionRecord{
		GeneID:          gene.ID,
		Fingerprint:     rec.Fingerprint,
		ParentGeneID:    rec.RepresentativeGeneID,
		EvolutionType:   model.EvolutionDuplication,
		ConfidenceScore: duplicationConfidence,
		Timestamp:       now,
		Metadata: map[string]any{
			model.MetaOriginalFile:  paths[0],
			model.MetaDuplicateFile: filePath,
		},
	})
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{
		IsDuplicate:          true,
		GeneID:               gene.ID,
		RepresentativeGeneID: rec.RepresentativeGeneID,
		OccurrenceCount:      rec.OccurrenceCount + 1,
		Fingerprint:          rec.Fingerprint,
		Action:               ActionLinkedToExisting,
	}, nil
}

func replayResult(ctx context.Context, q querier, geneID, fp string) (*RegistrationResult, error) {
	rec, err := getHashRecord(ctx, q, fp)
	if err != nil {
		return nil, err
	}
	res := &RegistrationResult{
		IsDuplicate:          rec.RepresentativeGeneID != geneID,
		GeneID:               geneID,
		RepresentativeGeneID: rec.RepresentativeGeneID,
		OccurrenceCount:      rec.OccurrenceCount,
		Fingerprint:          fp,
		Action:               ActionCreatedNew,
		Replayed:             true,
	}
	if res.IsDuplicate {
		res.Action = ActionLinkedToExisting
	}
	return res, nil
}

// Record returns the content hash record for a fingerprint.
func (s *SQLiteStore) Record(ctx context.Context, fingerprint string) (*model.ContentHashRecord, error) {
	return getHashRecord(ctx, s.db, fingerprint)
}

// Fingerprint returns the fingerprint the store computes for gene.
func (s *SQLiteStore) Fingerprint(gene model.Gene) string {
	return s.fingerprint(gene)
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getHashRecord(ctx context.Context, q querier, fp string) (*model.ContentHashRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT fingerprint, first_seen, last_seen, occurrence_count, representative_gene_id, file_paths, metadata
		 FROM content_hashes WHERE fingerprint = ?`, fp)
	rec, err := scanHashRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.Newf(gerrors.NotFound, "no content hash %s", normalize.Short(fp))
	}
	return rec, err
}

func scanHashRecord(row scanner) (*model.ContentHashRecord, error) {
	var rec model.ContentHashRecord
	var firstSeen, lastSeen, paths string
	var meta sql.NullString

	err := row.Scan(&rec.Fingerprint, &firstSeen, &lastSeen, &rec.OccurrenceCount,
		&rec.RepresentativeGeneID, &paths, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "scan content hash", err)
	}

	rec.FirstSeen = parseTime(firstSeen)
	rec.LastSeen = parseTime(lastSeen)
	if err := json.Unmarshal([]byte(paths), &rec.FilePaths); err != nil {
		return nil, gerrors.Wrap(gerrors.MalformedRecord,
			fmt.Sprintf("file_paths of %s", normalize.Short(rec.Fingerprint)), err)
	}
	if rec.Metadata, err = decodeMeta(meta); err != nil {
		return nil, gerrors.Wrap(gerrors.MalformedRecord,
			fmt.Sprintf("metadata of %s", normalize.Short(rec.Fingerprint)), err)
	}
	return &rec, nil
}

func decodeMeta(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
