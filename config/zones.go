package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"libflow/models"
)

var ErrInvalidZones = errors.New("config: invalid zone layout")

// LoadZones reads a zone layout from a YAML file such as
//
//	zones:
//	  - name: Quiet Zone
//	    seats: 40
//
// An empty path returns models.DefaultZones.
func LoadZones(path string) (models.ZoneConfig, error) {
	if path == "" {
		return models.DefaultZones, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load zones file %s: %w", path, err)
	}

	var zones models.ZoneConfig
	if err := k.Unmarshal("zones", &zones); err != nil {
		return nil, fmt.Errorf("decode zones file %s: %w", path, err)
	}
	if err := ValidateZones(zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// ValidateZones rejects empty layouts, blank or duplicate names and
// negative seat counts. Zones with zero seats are allowed. Names are
// trimmed in place so lookups by the plain name succeed.
func ValidateZones(zones models.ZoneConfig) error {
	if len(zones) == 0 {
		return fmt.Errorf("%w: no zones", ErrInvalidZones)
	}

	seen := make(map[string]bool, len(zones))
	for i, z := range zones {
		name := strings.TrimSpace(z.Name)
		if name == "" {
			return fmt.Errorf("%w: zone %d has no name", ErrInvalidZones, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate zone %q", ErrInvalidZones, name)
		}
		if z.Seats < 0 {
			return fmt.Errorf("%w: zone %q has %d seats", ErrInvalidZones, name, z.Seats)
		}
		seen[name] = true
		zones[i].Name = name
	}
	return nil
}
