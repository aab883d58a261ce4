package usecase

import (
	"context"
	"fmt"
	"strings"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

// EngineNicheSource builds niches for stress testing from live provider data.
type EngineNicheSource struct {
	engine *NicheEngine
}

func NewEngineNicheSource(engine *NicheEngine) *EngineNicheSource {
	return &EngineNicheSource{engine: engine}
}

func (s *EngineNicheSource) NicheForKeyword(ctx context.Context, keyword string) (*models.Niche, error) {
	return s.engine.BuildNiche(ctx, keyword)
}

// FixtureNicheSource serves fixed niches by keyword. It keeps stress tests deterministic.
type FixtureNicheSource struct {
	niches map[string]*models.Niche
}

func NewFixtureNicheSource(niches ...*models.Niche) *FixtureNicheSource {
	s := &FixtureNicheSource{niches: make(map[string]*models.Niche, len(niches))}
	for _, n := range niches {
		s.niches[fixtureKey(n.PrimaryKeyword)] = n
	}
	return s
}

func (s *FixtureNicheSource) NicheForKeyword(_ context.Context, keyword string) (*models.Niche, error) {
	n, ok := s.niches[fixtureKey(keyword)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", keyword, models.ErrNicheNotFound)
	}
	return n, nil
}

func fixtureKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var (
	_ domsvc.NicheSource = (*EngineNicheSource)(nil)
	_ domsvc.NicheSource = (*FixtureNicheSource)(nil)
)
