package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	WorldID    string `yaml:"world_id"`
	TickRateHz int    `yaml:"tick_rate_hz"`
	Seed       int64  `yaml:"seed"`

	SpawnRadius     float32 `yaml:"spawn_radius"`
	InitialEntities int     `yaml:"initial_entities"`

	SaveEveryTicks   int `yaml:"save_every_ticks"`
	DigestEveryTicks int `yaml:"digest_every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		WorldID:          "world_1",
		TickRateHz:       20,
		Seed:             1337,
		SpawnRadius:      100,
		InitialEntities:  64,
		SaveEveryTicks:   1200,
		DigestEveryTicks: 100,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	return t, nil
}
