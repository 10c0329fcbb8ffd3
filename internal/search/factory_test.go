package search

import (
	"context"
	"testing"

	"github.com/docbox-nz/docbox/internal/models"
)

type stubBackend struct {
	ty BackendType
}

func (b stubBackend) Type() BackendType { return b.ty }
func (b stubBackend) ForTenant(*models.Tenant) (Index, error) {
	return nil, nil
}

func TestNewFactory_requiresActiveBackend(t *testing.T) {
	if _, err := NewFactory(BackendTypesense, stubBackend{ty: BackendDatabase}); err == nil {
		t.Fatal("expected an error when the active backend is unregistered")
	}

	f, err := NewFactory(BackendDatabase, stubBackend{ty: BackendDatabase}, stubBackend{ty: BackendSelfHosted})
	if err != nil {
		t.Fatal(err)
	}
	if f.Active() != BackendDatabase {
		t.Errorf("active = %q", f.Active())
	}
}

func TestRequestHasTargets(t *testing.T) {
	if (&Request{}).HasTargets() {
		t.Error("empty request should have no targets")
	}
	if !(&Request{IncludeName: true}).HasTargets() {
		t.Error("include_name should count as a target")
	}
	if !(&Request{IncludeContent: true}).HasTargets() {
		t.Error("include_content should count as a target")
	}
}

func TestApplyMigrations_recordsEachApplied(t *testing.T) {
	applied := []string{}
	idx := &migratingIndex{pending: []Migration{
		{Name: "m1", Apply: func(context.Context, Index) error { return nil }},
		{Name: "m2", Apply: func(context.Context, Index) error { return nil }},
	}}

	err := ApplyMigrations(context.Background(), idx, nil, func(name string) error {
		applied = append(applied, name)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || applied[0] != "m1" || applied[1] != "m2" {
		t.Fatalf("applied = %v", applied)
	}
}

// migratingIndex is an Index stub that only implements migration calls.
type migratingIndex struct {
	Index
	pending []Migration
}

func (m *migratingIndex) GetPendingMigrations([]models.TenantMigration) []Migration {
	return m.pending
}

func (m *migratingIndex) ApplyMigration(ctx context.Context, mig Migration) error {
	return mig.Apply(ctx, m)
}

func TestScoreConstructors(t *testing.T) {
	s := IntScore(42)
	if s.Kind != ScoreInteger || s.Int != 42 {
		t.Errorf("IntScore = %+v", s)
	}
	f := FloatScore(0.5)
	if f.Kind != ScoreFloat || f.Float != 0.5 {
		t.Errorf("FloatScore = %+v", f)
	}
}
