package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/wagerlobby/internal/model"
)

type tierFile struct {
	Tiers []model.Tier `yaml:"tiers" validate:"required,min=1,unique=Name,dive"`
}

// Tiers returns the configured tiers, read from TiersFile when set and the
// defaults otherwise. Order is preserved.
func (c *Config) Tiers() ([]model.Tier, error) {
	if c.TiersFile == "" {
		return model.DefaultTiers(), nil
	}

	data, err := os.ReadFile(c.TiersFile)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}
	return ParseTiers(data)
}

// ParseTiers decodes and validates a YAML tier list
func ParseTiers(data []byte) ([]model.Tier, error) {
	var tf tierFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode tiers: %w", err)
	}
	for i := range tf.Tiers {
		if tf.Tiers[i].RewardHandle == "" {
			tf.Tiers[i].RewardHandle = "reward:" + string(tf.Tiers[i].Name)
		}
	}
	if err := validate.Struct(tf); err != nil {
		return nil, fmt.Errorf("invalid tiers: %w", err)
	}
	return tf.Tiers, nil
}
