package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateEditHistory records a single mutation to a file or link.
func CreateEditHistory(ctx context.Context, q Querier, input models.CreateEditHistory) error {
	const query = `
INSERT INTO edit_history (id, file_id, link_id, user_id, previous_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := q.Exec(ctx, query, input.ID, input.FileID, input.LinkID, input.CreatedBy, input.PreviousName, input.CreatedAt)
	if err != nil {
		return docerr.Dependency("failed to record edit history", err)
	}
	return nil
}

// ListEditHistoryForFile returns every recorded edit to fileID, newest
// first.
func ListEditHistoryForFile(ctx context.Context, q Querier, fileID models.FileID) ([]models.EditHistory, error) {
	const query = `
SELECT id, file_id, link_id, user_id, previous_name, created_at FROM edit_history
WHERE file_id = $1 ORDER BY created_at DESC`
	return scanEditHistoryRows(ctx, q, query, fileID, models.EditTargetFile)
}

// ListEditHistoryForLink returns every recorded edit to linkID, newest
// first.
func ListEditHistoryForLink(ctx context.Context, q Querier, linkID models.LinkID) ([]models.EditHistory, error) {
	const query = `
SELECT id, file_id, link_id, user_id, previous_name, created_at FROM edit_history
WHERE link_id = $1 ORDER BY created_at DESC`
	return scanEditHistoryRows(ctx, q, query, linkID, models.EditTargetLink)
}

func scanEditHistoryRows(ctx context.Context, q Querier, query string, id any, kind models.EditTargetKind) ([]models.EditHistory, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, docerr.Dependency("failed to list edit history", err)
	}
	defer rows.Close()

	var history []models.EditHistory
	for rows.Next() {
		var h models.EditHistory
		if err := rows.Scan(&h.ID, &h.FileID, &h.LinkID, &h.CreatedBy, &h.PreviousName, &h.CreatedAt); err != nil {
			return nil, docerr.Dependency("failed to read edit history row", err)
		}
		h.TargetKind = kind
		history = append(history, h)
	}
	return history, rows.Err()
}
