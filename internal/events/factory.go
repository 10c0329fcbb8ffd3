package events

import (
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/models"
)

// Factory resolves the Publisher a tenant should use: an SQS sink when
// the tenant has a queue configured, the no-op sink otherwise. One SQS
// client is shared across every tenant; only the queue URL differs.
type Factory struct {
	client SQSClient
	logger *zap.Logger
}

// NewFactory builds a Factory sharing a single SQS client across every
// tenant publisher it creates.
func NewFactory(client SQSClient, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{client: client, logger: logger}
}

// ForTenant resolves the publisher tenant should use when fanning out
// its mutation events.
func (f *Factory) ForTenant(tenant *models.Tenant) Publisher {
	if tenant.EventQueueURL == nil || *tenant.EventQueueURL == "" {
		return NoopPublisher{}
	}
	return NewSQSPublisher(f.client, *tenant.EventQueueURL, f.logger)
}
