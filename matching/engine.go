package matching

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"home-services-server/models"
	"home-services-server/utils"
)

// Coverage identifies the location a request must be served at.
type Coverage struct {
	Zip  string
	City string // optional; resolved from the ZIP table when empty
}

// Engine filters a worker pool down to the pros eligible for a request.
//
// The pool is treated as a read-only snapshot per call; matching has no side
// effects on it. Output preserves the insertion order of the input pool —
// eligibility is binary, there is no ranking.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a matching engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Match returns the workers eligible for the given coverage area and service
// category. An empty category skips the category filter entirely. When the
// coverage filter yields no workers the category filter is skipped and an
// empty result is returned.
func (e *Engine) Match(coverage Coverage, category string, pool []models.Worker) []models.Worker {
	start := time.Now()
	defer func() {
		utils.MatchLatency.Observe(time.Since(start).Seconds())
	}()

	covered := make([]models.Worker, 0, len(pool))
	for _, w := range pool {
		if e.coversLocation(&w, coverage) {
			covered = append(covered, w)
		}
	}

	if len(covered) == 0 {
		e.logger.Debug("no workers cover location",
			zap.String("zip", coverage.Zip),
			zap.Int("pool_size", len(pool)))
		return []models.Worker{}
	}

	if category == "" {
		return covered
	}

	matched := make([]models.Worker, 0, len(covered))
	for _, w := range covered {
		if e.matchesCategory(&w, category) {
			matched = append(matched, w)
		}
	}

	e.logger.Debug("matched workers",
		zap.String("zip", coverage.Zip),
		zap.String("category", category),
		zap.Int("covered", len(covered)),
		zap.Int("matched", len(matched)))

	return matched
}

// coversLocation implements the coverage filter: a worker with no declared
// coverage serves everywhere; otherwise either a declared postal code must
// equal the requested one, or the declared city must textually overlap the
// ZIP's resolved city or county name (case-insensitive, either direction).
func (e *Engine) coversLocation(w *models.Worker, coverage Coverage) bool {
	if !w.HasCoverage() {
		return true
	}

	zip := strings.TrimSpace(coverage.Zip)
	for _, declared := range w.CoverageZips() {
		if declared == zip {
			return true
		}
	}

	workerCity := strings.ToLower(strings.TrimSpace(w.City))
	if workerCity == "" {
		return false
	}

	candidates := make([]string, 0, 3)
	if coverage.City != "" {
		candidates = append(candidates, strings.ToLower(coverage.City))
	}
	if area, ok := utils.ResolveZip(zip); ok {
		candidates = append(candidates, strings.ToLower(area.City), strings.ToLower(area.County))
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if strings.Contains(c, workerCity) || strings.Contains(workerCity, c) {
			return true
		}
	}
	return false
}

// matchesCategory implements the skill filter: a worker with no tags is a
// generalist and matches everything; otherwise a tag matches on equality,
// substring overlap in either direction, or through the category's static
// synonym keyword table.
func (e *Engine) matchesCategory(w *models.Worker, category string) bool {
	tags := w.SkillTags()
	if len(tags) == 0 {
		return true
	}

	cat := strings.ToLower(strings.TrimSpace(category))
	keywords := synonymsFor(cat)

	for _, tag := range tags {
		t := strings.ToLower(tag)
		if t == cat {
			return true
		}
		if strings.Contains(cat, t) || strings.Contains(t, cat) {
			return true
		}
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				return true
			}
		}
	}
	return false
}
