package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// UpsertUser records (or refreshes) a breadcrumb user record, called
// whenever a caller attributes an action to a UserID docbox hasn't seen
// before.
func UpsertUser(ctx context.Context, q Querier, user models.User) error {
	const query = `
INSERT INTO users (id, name, image_id) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, image_id = excluded.image_id`
	_, err := q.Exec(ctx, query, user.ID, user.Name, user.ImageID)
	if err != nil {
		return docerr.Dependency("failed to upsert user", err)
	}
	return nil
}

// GetUser resolves one user by id.
func GetUser(ctx context.Context, q Querier, id models.UserID) (*models.User, error) {
	const query = `SELECT id, name, image_id FROM users WHERE id = $1`
	var u models.User
	if err := q.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.ImageID); err != nil {
		return nil, notFoundIf(err, "user not found")
	}
	return &u, nil
}
