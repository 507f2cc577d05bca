package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseTheatreSpec parses a single NAME:TIER:keyword,keyword triple.
// Tier and keywords are optional; keywords default to the lowercased name.
func ParseTheatreSpec(spec string) (TheatreDefault, error) {
	parts := strings.SplitN(spec, ":", 3)

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return TheatreDefault{}, fmt.Errorf("theatre name is required in %q", spec)
	}

	theatre := TheatreDefault{Name: name, Tier: 1}

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		tier, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return TheatreDefault{}, fmt.Errorf("invalid tier in %q: %w", spec, err)
		}
		if tier < 1 {
			return TheatreDefault{}, fmt.Errorf("tier must be at least 1 in %q", spec)
		}
		theatre.Tier = tier
	}

	if len(parts) > 2 {
		for _, keyword := range strings.Split(parts[2], ",") {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" {
				theatre.Keywords = append(theatre.Keywords, keyword)
			}
		}
	}
	if len(theatre.Keywords) == 0 {
		theatre.Keywords = []string{strings.ToLower(name)}
	}

	return theatre, nil
}

// ParseTheatreList parses a ';'-separated list of theatre triples.
func ParseTheatreList(list string) ([]TheatreDefault, error) {
	var theatres []TheatreDefault
	for _, spec := range strings.Split(list, ";") {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		theatre, err := ParseTheatreSpec(spec)
		if err != nil {
			return nil, err
		}
		theatres = append(theatres, theatre)
	}
	return theatres, nil
}

type theatresFile struct {
	Theatres []TheatreDefault `yaml:"theatres"`
}

// LoadTheatresFile reads a default theatre list from a YAML file.
func LoadTheatresFile(path string) ([]TheatreDefault, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed theatresFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range parsed.Theatres {
		if strings.TrimSpace(parsed.Theatres[i].Name) == "" {
			return nil, fmt.Errorf("theatre at index %d has no name", i)
		}
		if parsed.Theatres[i].Tier < 1 {
			parsed.Theatres[i].Tier = 1
		}
		if len(parsed.Theatres[i].Keywords) == 0 {
			parsed.Theatres[i].Keywords = []string{strings.ToLower(parsed.Theatres[i].Name)}
		}
	}

	return parsed.Theatres, nil
}
