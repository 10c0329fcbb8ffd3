package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/docbox-nz/docbox/internal/docerr"
)

func TestMemory_setGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.SetSecret(ctx, "db-creds", `{"username":"u","password":"p"}`); err != nil {
		t.Fatal(err)
	}

	value, err := m.GetSecret(ctx, "db-creds")
	if err != nil {
		t.Fatal(err)
	}
	if value != `{"username":"u","password":"p"}` {
		t.Fatalf("got %q", value)
	}

	ok, err := m.HasSecret(ctx, "db-creds")
	if err != nil || !ok {
		t.Fatalf("HasSecret = %v, %v", ok, err)
	}

	if err := m.DeleteSecret(ctx, "db-creds", true); err != nil {
		t.Fatal(err)
	}
	ok, err = m.HasSecret(ctx, "db-creds")
	if err != nil || ok {
		t.Fatalf("HasSecret after delete = %v, %v", ok, err)
	}
}

func TestMemory_getMissingIsNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetSecret(context.Background(), "absent")
	if !errors.Is(err, docerr.NotFound("")) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestMemory_overwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.SetSecret(ctx, "k", "old")
	_ = m.SetSecret(ctx, "k", "new")

	value, err := m.GetSecret(ctx, "k")
	if err != nil || value != "new" {
		t.Fatalf("got %q, %v", value, err)
	}
}
