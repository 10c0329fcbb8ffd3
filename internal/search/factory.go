package search

import (
	"fmt"

	"github.com/docbox-nz/docbox/internal/models"
)

// BackendType names one of the three search backends a tenant's index
// can be provisioned against.
type BackendType string

const (
	BackendTypesense BackendType = "typesense"
	BackendSelfHosted BackendType = "self_hosted"
	BackendDatabase   BackendType = "database"
)

// Backend is the minimal surface every concrete search-backend factory
// exposes, so the generic Factory below can resolve a named backend
// without depending on any of their packages directly. Backends that
// don't need a distinct index resource (the database backend) just
// ignore tenant.SearchIndexName and key off the tenant's own database.
type Backend interface {
	Type() BackendType
	ForTenant(tenant *models.Tenant) (Index, error)
}

// Factory selects among the registered search backends by type at
// runtime, mirroring the way docbox's storage and vector-index layers
// pick a concrete implementation from configuration rather than a build
// tag.
type Factory struct {
	backends map[BackendType]Backend
	active   BackendType
}

// NewFactory builds a Factory that resolves indexes against active,
// using whichever of backends implements it.
func NewFactory(active BackendType, backends ...Backend) (*Factory, error) {
	registry := make(map[BackendType]Backend, len(backends))
	for _, b := range backends {
		registry[b.Type()] = b
	}
	if _, ok := registry[active]; !ok {
		return nil, fmt.Errorf("no search backend registered for %q", active)
	}
	return &Factory{backends: registry, active: active}, nil
}

// ForTenant builds the Index for tenant using the active backend.
func (f *Factory) ForTenant(tenant *models.Tenant) (Index, error) {
	return f.backends[f.active].ForTenant(tenant)
}

// Active reports which backend type is in use.
func (f *Factory) Active() BackendType {
	return f.active
}
