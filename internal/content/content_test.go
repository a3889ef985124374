package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trashtalk/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, []string{"classic", "office", "family"}, catalog.Order)
	assert.Equal(t, []string{"classic"}, catalog.Default)

	for id, pack := range catalog.Packs {
		assert.NotEmpty(t, pack.Name, id)
		assert.NotEmpty(t, pack.Prompts, id)
		assert.NotEmpty(t, pack.Responses, id)
		for _, p := range pack.Prompts {
			assert.Equal(t, 1, strings.Count(p, domain.Blank), "%s: %q", id, p)
		}
		for _, p := range pack.Prompts2 {
			assert.Equal(t, 2, strings.Count(p, domain.Blank), "%s: %q", id, p)
		}
		for _, p := range pack.Prompts3 {
			assert.Equal(t, 3, strings.Count(p, domain.Blank), "%s: %q", id, p)
		}
	}
}

func TestDefaultSchedule(t *testing.T) {
	schedule, err := LoadSchedule("")
	require.NoError(t, err)

	assert.Equal(t, 10, schedule.TotalRounds)
	assert.Equal(t, domain.RoundConfig{CardsRequired: 1, PointValue: 1}, schedule.For(1))
	assert.Equal(t, domain.RoundConfig{CardsRequired: 2, PointValue: 2, Label: "Double Down"}, schedule.For(6))
	assert.Equal(t, 3, schedule.For(9).CardsRequired)
	assert.Equal(t, domain.DefaultRoundConfig, schedule.For(42))
}

func TestParseCatalog(t *testing.T) {
	t.Run("inline pack fields", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte(`
packs:
  - id: tiny
    name: Tiny
    icon: "🐜"
    prompts: ["Small ______."]
    prompts_2: ["______ and ______."]
    responses: [a, b]
`))
		require.NoError(t, err)
		require.Contains(t, catalog.Packs, "tiny")
		pack := catalog.Packs["tiny"]
		assert.Equal(t, "Tiny", pack.Name)
		assert.Equal(t, "🐜", pack.Icon)
		assert.Equal(t, []string{"______ and ______."}, pack.Prompts2)
		assert.Equal(t, 4, pack.CardCount())
		assert.Equal(t, []string{"tiny"}, catalog.Default)
	})

	tests := map[string]string{
		"empty":           `packs: []`,
		"missing id":      "packs:\n  - name: x\n",
		"duplicate id":    "packs:\n  - id: a\n  - id: a\n",
		"unknown default": "default: [nope]\npacks:\n  - id: a\n",
		"bad yaml":        "packs: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSchedule(t *testing.T) {
	tests := map[string]string{
		"no rounds":       "total_rounds: 0",
		"too many cards":  "total_rounds: 3\nphases:\n  - rounds: [1]\n    cards_required: 4\n    points: 1\n",
		"negative points": "total_rounds: 3\nphases:\n  - rounds: [1]\n    cards_required: 1\n    points: -1\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rounds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("total_rounds: 2\n"), 0o644))

	schedule, err := LoadSchedule(path)
	require.NoError(t, err)
	assert.Equal(t, 2, schedule.TotalRounds)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
