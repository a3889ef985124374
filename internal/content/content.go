// Package content loads card packs and the round schedule.
package content

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trashtalk/internal/domain"
)

//go:embed defaults/*.yaml
var defaults embed.FS

const (
	defaultPacksFile  = "defaults/packs.yaml"
	defaultRoundsFile = "defaults/rounds.yaml"
)

type packEntry struct {
	ID          string `yaml:"id"`
	domain.Pack `yaml:",inline"`
}

type packsFile struct {
	Default []string    `yaml:"default"`
	Packs   []packEntry `yaml:"packs"`
}

// LoadCatalog reads the pack catalog from path, or the built-in packs when path is empty.
func LoadCatalog(path string) (*domain.Catalog, error) {
	data, err := read(path, defaultPacksFile)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML pack catalog
func ParseCatalog(data []byte) (*domain.Catalog, error) {
	var file packsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse packs: %w", err)
	}
	if len(file.Packs) == 0 {
		return nil, errors.New("parse packs: no packs defined")
	}

	catalog := &domain.Catalog{
		Packs: make(map[string]*domain.Pack, len(file.Packs)),
		Order: make([]string, 0, len(file.Packs)),
	}
	for i := range file.Packs {
		entry := &file.Packs[i]
		if entry.ID == "" {
			return nil, fmt.Errorf("parse packs: pack %d has no id", i)
		}
		if _, dup := catalog.Packs[entry.ID]; dup {
			return nil, fmt.Errorf("parse packs: duplicate pack id %q", entry.ID)
		}
		pack := entry.Pack
		catalog.Packs[entry.ID] = &pack
		catalog.Order = append(catalog.Order, entry.ID)
	}

	for _, id := range file.Default {
		if _, ok := catalog.Packs[id]; !ok {
			return nil, fmt.Errorf("parse packs: unknown default pack %q", id)
		}
	}
	catalog.Default = file.Default
	if len(catalog.Default) == 0 {
		catalog.Default = []string{catalog.Order[0]}
	}

	return catalog, nil
}

// LoadSchedule reads the round schedule from path, or the built-in schedule when path is empty.
func LoadSchedule(path string) (*domain.Schedule, error) {
	data, err := read(path, defaultRoundsFile)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a YAML round schedule
func ParseSchedule(data []byte) (*domain.Schedule, error) {
	var schedule domain.Schedule
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parse rounds: %w", err)
	}
	if schedule.TotalRounds < 1 {
		return nil, fmt.Errorf("parse rounds: total_rounds must be positive, got %d", schedule.TotalRounds)
	}
	for i, phase := range schedule.Phases {
		if phase.CardsRequired < 1 || phase.CardsRequired > 3 {
			return nil, fmt.Errorf("parse rounds: phase %d: cards_required must be 1-3, got %d", i, phase.CardsRequired)
		}
		if phase.Points < 0 {
			return nil, fmt.Errorf("parse rounds: phase %d: negative points", i)
		}
	}
	return &schedule, nil
}

func read(path, fallback string) ([]byte, error) {
	if path == "" {
		return defaults.ReadFile(fallback)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
