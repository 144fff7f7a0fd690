package pipeline

import (
	"context"

	"threatcomposer/pkg/models"
)

// Source yields raw statement payloads. A nil payload with a nil error means
// nothing was available before the source's poll timeout.
type Source interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// ThreatWriter writes composed threats.
type ThreatWriter interface {
	WriteThreats(threats []*models.ComposedThreat) error
	Close() error
}
