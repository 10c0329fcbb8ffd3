package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/docbox-nz/docbox/internal/docerr"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(unique) {
		t.Error("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert failed: %w", unique)) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign-key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Error("non-pg error is not a unique violation")
	}
}

func TestNotFoundIf(t *testing.T) {
	if notFoundIf(nil, "x") != nil {
		t.Error("nil error should pass through")
	}

	err := notFoundIf(pgx.ErrNoRows, "file not found")
	if !errors.Is(err, docerr.NotFound("")) {
		t.Errorf("ErrNoRows should map to not-found, got %v", err)
	}

	err = notFoundIf(errors.New("connection reset"), "file not found")
	var de *docerr.Error
	if !errors.As(err, &de) || de.Kind() != docerr.KindDependency {
		t.Errorf("other errors should map to dependency, got %v", err)
	}
}
