package resource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultItemType is used for item positions that name no type.
const DefaultItemType = "apple"

// ItemDefinition describes a pickup.
type ItemDefinition struct {
	Image   string   `yaml:"image"`
	Script  string   `yaml:"script"`
	Scale   float64  `yaml:"scale"`
	Effects []string `yaml:"effects"`
}

// ItemCatalogue maps item type names to definitions.
type ItemCatalogue map[string]ItemDefinition

type itemsFile struct {
	Items ItemCatalogue `yaml:"items"`
}

// LoadItems reads an item catalogue YAML file.
func LoadItems(path string) (ItemCatalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var f itemsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	if f.Items == nil {
		f.Items = ItemCatalogue{}
	}
	return f.Items, nil
}
