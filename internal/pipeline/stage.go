package pipeline

import (
	"time"

	"github.com/google/uuid"

	"threatcomposer/internal/composer"
	"threatcomposer/internal/i18n"
	"threatcomposer/internal/metrics"
	"threatcomposer/internal/rules"
	"threatcomposer/pkg/models"
)

// Stage turns one statement into a composed threat. The zero value is not
// usable; Composer is required.
type Stage struct {
	Composer  *composer.Composer
	Translate i18n.Func
	Engine    rules.Engine
	Metrics   *metrics.Collector

	Now   func() time.Time
	NewID func() string
}

// Compose renders, tags and records stmt. A nil stmt composes as empty.
func (s *Stage) Compose(stmt *models.Statement) *models.ComposedThreat {
	if stmt == nil {
		stmt = &models.Statement{}
	}
	res, info := s.Composer.RenderWithInfo(stmt, s.Translate)

	var tags []models.ThreatTag
	if s.Engine != nil && info.Case != composer.CaseEmpty {
		tags = s.Engine.Apply(stmt, res.Statement)
	}
	s.Metrics.ObserveRender(info, len(res.Suggestions), len(tags))

	filled := make([]string, 0, len(info.Filled))
	for _, f := range info.Filled {
		filled = append(filled, string(f))
	}

	th := &models.ComposedThreat{
		RecordID:     s.newID(),
		ComposedAt:   s.now().UTC(),
		Combination:  int(info.Combination),
		FilledFields: filled,
		Input:        stmt,
		Result:       res,
		Tags:         tags,
	}
	if stmt.HasNumericID() {
		th.NumericID = stmt.NumericID
	}
	return th
}

func (s *Stage) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Stage) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
