package cfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFeed is one entry of the startup seed file. Only the URL is required;
// owner tags the feed (and its items) as private to that identity.
type SeedFeed struct {
	URL            string `yaml:"url"`
	Owner          string `yaml:"owner"`
	ExtractContent bool   `yaml:"extract_content"`
}

type seedFile struct {
	Feeds []SeedFeed `yaml:"feeds"`
}

// LoadSeed reads the YAML seed file listing feeds to register at startup.
// A missing path is not an error; the seed file is optional.
func LoadSeed(path string) ([]SeedFeed, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var parsed seedFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i, feed := range parsed.Feeds {
		if feed.URL == "" {
			return nil, fmt.Errorf("seed file %s: feed #%d has no url", path, i+1)
		}
	}

	return parsed.Feeds, nil
}
