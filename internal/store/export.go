package store

import (
	"context"
	"database/sql"

	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/model"
)

// ExportGenes returns every recorded gene, optionally restricted to one
// file path, in registration order. The output can be fed back to
// Register to rebuild a store.
func (s *SQLiteStore) ExportGenes(ctx context.Context, filePath string) ([]model.Gene, error) {
	query := `SELECT id, type, name, content, file_path, created_at, actor FROM genes`
	args := []any{}
	if filePath != "" {
		query += ` WHERE file_path = ?`
		args = append(args, filePath)
	}
	query += ` ORDER BY registered_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "export genes", err)
	}
	defer rows.Close()

	genes := []model.Gene{}
	for rows.Next() {
		var g model.Gene
		var createdAt string
		var actor sql.NullString
		if err := rows.Scan(&g.ID, &g.Type, &g.Name, &g.Content, &g.FilePath, &createdAt, &actor); err != nil {
			return nil, gerrors.Wrap(gerrors.StoreUnavailable, "scan gene", err)
		}
		g.CreatedAt = parseTime(createdAt)
		g.Actor = actor.String
		genes = append(genes, g)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.StoreUnavailable, "export genes", err)
	}
	return genes, nil
}
