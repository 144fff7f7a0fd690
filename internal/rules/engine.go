package rules

import "threatcomposer/pkg/models"

// Engine tags composed statements.
type Engine interface {
	Apply(stmt *models.Statement, rendered string) []models.ThreatTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(stmt *models.Statement, rendered string) []models.ThreatTag {
	return nil
}
