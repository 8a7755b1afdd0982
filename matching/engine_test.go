package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"home-services-server/models"
)

func worker(name, zips, city, skills string) models.Worker {
	return models.Worker{
		Name:        name,
		CoverageZip: zips,
		City:        city,
		Skills:      skills,
		IsActive:    true,
	}
}

func names(ws []models.Worker) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Name)
	}
	return out
}

func TestMatchGeneralistBeatsOutOfAreaSpecialist(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Generalist", "", "", ""),
		worker("Remote Electrician", "21999", "", "electrician"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	assert.Equal(t, []string{"Generalist"}, names(result))
}

func TestMatchCoverageByZipEquality(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("In Area", "21201,21202", "", "plumbing"),
		worker("Out Of Area", "21403", "", "plumbing"),
	}

	result := engine.Match(Coverage{Zip: "21202"}, "plumbing", pool)
	assert.Equal(t, []string{"In Area"}, names(result))
}

func TestMatchCoverageByCityOverlap(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		// No zip overlap but the declared city overlaps the resolved city name.
		worker("City Pro", "21999", "Baltimore", "plumbing"),
		// County overlap counts too: 21201 resolves to Baltimore City.
		worker("County Pro", "21999", "baltimore city", "plumbing"),
		worker("Wrong City", "21999", "Annapolis", "plumbing"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	assert.Equal(t, []string{"City Pro", "County Pro"}, names(result))
}

func TestMatchEmptyCoverageShortCircuitsCategoryFilter(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Far Away", "21999", "Nowhere", "plumbing"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	require.NotNil(t, result)
	assert.Empty(t, result)
}

func TestMatchEmptyCategorySkipsSkillFilter(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Plumber", "21201", "", "plumbing"),
		worker("Electrician", "21201", "", "electrical"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "", pool)
	assert.Equal(t, []string{"Plumber", "Electrician"}, names(result))
}

func TestMatchCategoryBySubstring(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Tagged Long", "21201", "", "residential plumbing repair"),
		worker("Tagged Short", "21201", "", "plumb"),
		worker("Unrelated", "21201", "", "roofing"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	assert.Equal(t, []string{"Tagged Long", "Tagged Short"}, names(result))
}

func TestMatchCategoryThroughSynonyms(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Drain Pro", "21201", "", "drain repair"),
		worker("Maid Service", "21201", "", "maid service"),
		worker("Roofer", "21201", "", "roofing"),
	}

	plumbing := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	assert.Equal(t, []string{"Drain Pro"}, names(plumbing))

	cleaning := engine.Match(Coverage{Zip: "21201"}, "house cleaning", pool)
	assert.Equal(t, []string{"Maid Service"}, names(cleaning))
}

func TestMatchPreservesPoolOrder(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("First", "21201", "", "plumbing"),
		worker("Second", "", "", ""),
		worker("Third", "21201", "", "pipe repair"),
	}

	result := engine.Match(Coverage{Zip: "21201"}, "plumbing", pool)
	assert.Equal(t, []string{"First", "Second", "Third"}, names(result))
}

func TestMatchLeavesPoolUntouched(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	pool := []models.Worker{
		worker("Only", "21201", "", "plumbing"),
	}
	before := pool[0]

	_ = engine.Match(Coverage{Zip: "21999"}, "plumbing", pool)
	assert.Equal(t, before, pool[0])
}
