package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/logger"
)

// SeedFile describes the initial districts and sources loaded into an
// empty store.
type SeedFile struct {
	Districts []SeedDistrict `yaml:"districts"`
	Sources   []SeedSource   `yaml:"sources"`
}

// SeedDistrict is one district entry in the seed file
type SeedDistrict struct {
	Name     string `yaml:"name"`
	NameEn   string `yaml:"nameEn"`
	Code     string `yaml:"code"`
	IsActive bool   `yaml:"isActive"`
}

// SeedSource is one source entry in the seed file; District references a
// district code declared above it.
type SeedSource struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	District string `yaml:"district"`
	IsActive bool   `yaml:"isActive"`
	Config   string `yaml:"config"`
}

// LoadSeedFile reads and parses a YAML seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// ApplySeed inserts the seed districts and sources when the store holds
// no districts yet. Re-running against a populated store is a no-op.
func ApplySeed(ctx context.Context, s Store, seed *SeedFile) error {
	existing, err := s.ListDistricts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Debug("seed skipped, %d districts already present", len(existing))
		return nil
	}

	byCode := make(map[string]int64, len(seed.Districts))
	for _, sd := range seed.Districts {
		district := &event.District{
			Name:     sd.Name,
			NameEn:   sd.NameEn,
			Code:     sd.Code,
			IsActive: sd.IsActive,
		}
		if err := s.CreateDistrict(ctx, district); err != nil {
			return err
		}
		byCode[sd.Code] = district.ID
	}

	for _, ss := range seed.Sources {
		districtID, ok := byCode[ss.District]
		if !ok {
			return fmt.Errorf("seed source %q references unknown district %q", ss.Name, ss.District)
		}
		src := &event.SourceDescriptor{
			Name:       ss.Name,
			Kind:       event.SourceKind(ss.Kind),
			URL:        ss.URL,
			DistrictID: districtID,
			IsActive:   ss.IsActive,
			Config:     ss.Config,
		}
		if err := src.Validate(); err != nil {
			return fmt.Errorf("seed source %q: %w", ss.Name, err)
		}
		if err := s.CreateSource(ctx, src); err != nil {
			return err
		}
	}

	logger.Info("seeded %d districts and %d sources", len(seed.Districts), len(seed.Sources))
	return nil
}
