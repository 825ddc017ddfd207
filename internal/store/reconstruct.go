package store

import (
	"context"
	"database/sql"
	"strings"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/model"
	"github.com/rcliao/gene-ledger/internal/normalize"
)

// Reconstruct assembles filePath from its genes, newest first. A full_file
// gene replaces everything and ends the walk; function genes seen before
// it are appended with a blank line. Any version other than "latest"
// restricts the walk to gene ids containing it.
func (s *SQLiteStore) Reconstruct(ctx context.Context, filePath, version string) (*ReconstructionResult, error) {
	if version == "" {
		version = LatestVersion
	}

	query := `SELECT id, type, content FROM genes WHERE file_path = ?`
	args := []any{filePath}
	if version != LatestVersion {
		query += ` AND instr(id, ?) > 0`
		args = append(args, version)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query genes", err)
	}
	defer rows.Close()

	type geneRow struct{ id, typ, content string }
	var genes []geneRow
	for rows.Next() {
		var g geneRow
		if err := rows.Scan(&g.id, &g.typ, &g.content); err != nil {
			return nil, gerrors.Wrap(gerrors.StoreUnavailable, "scan gene", err)
		}
		genes = append(genes, g)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query genes", err)
	}

	if len(genes) == 0 {
		if version != LatestVersion {
			return nil, gerrors.Newf(gerrors.NotFound, "no genes found for file: %s (version %s)", filePath, version)
		}
		return nil, gerrors.Newf(gerrors.NotFound, "no genes found for file: %s", filePath)
	}

	var b strings.Builder
	used := []string{}
	for _, g := range genes {
		if g.typ == model.TypeFullFile {
			b.Reset()
			b.WriteString(g.content)
			used = []string{g.id}
			break
		}
		if g.typ == model.TypeFunction {
			b.WriteString(g.content)
			b.WriteString("\n\n")
			used = append(used, g.id)
		}
	}

	content := b.String()
	return &ReconstructionResult{
		FilePath:             filePath,
		Version:              version,
		ReconstructedContent: content,
		GeneCount:            len(used),
		GenesUsed:            used,
		ContentHash:          normalize.ContentHash(content),
	}, nil
}

// ListFiles returns every path with recorded genes, most recently updated first.
func (s *SQLiteStore) ListFiles(ctx context.Context) ([]FileSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, COUNT(*) AS gene_count, MAX(created_at) AS last_update
		FROM genes
		GROUP BY file_path
		ORDER BY last_update DESC, file_path ASC`)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "list files", err)
	}
	defer rows.Close()

	files := []FileSummary{}
	for rows.Next() {
		var f FileSummary
		if err := rows.Scan(&f.FilePath, &f.GeneCount, &f.LastUpdate); err != nil {
			return nil, gerrors.Wrap(gerrors.StoreUnavailable, "scan file", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "list files", err)
	}
	return files, nil
}

// Versions returns the genes recorded for filePath, newest first.
func (s *SQLiteStore) Versions(ctx context.Context, filePath string) ([]GeneVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, actor, type, fingerprint
		FROM genes
		WHERE file_path = ?
		ORDER BY created_at DESC, rowid DESC`, filePath)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query versions", err)
	}
	defer rows.Close()

	versions := []GeneVersion{}
	for rows.Next() {
		var v GeneVersion
		var actor sql.NullString
		var fp string
		if err := rows.Scan(&v.GeneID, &v.CreatedAt, &actor, &v.ContentType, &fp); err != nil {
			return nil, gerrors.Wrap(gerrors.StoreUnavailable, "scan version", err)
		}
		v.Actor = actor.String
		v.ShortHash = normalize.Short(fp)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "query versions", err)
	}
	if len(versions) == 0 {
		return nil, gerrors.Newf(gerrors.NotFound, "no genes found for file: %s", filePath)
	}
	return versions, nil
}
