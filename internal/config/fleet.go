package config

import (
	"fmt"
	"os"

	"carrental/internal/models"

	"gopkg.in/yaml.v2"
)

// FleetFile is the seed catalog loaded on first start and by scripts/seed_fleet.go.
type FleetFile struct {
	Cars []models.Car `yaml:"cars"`
}

func LoadFleet(path string) ([]models.Car, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet: %w", err)
	}

	var fleet FleetFile
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		return nil, fmt.Errorf("parse fleet %s: %w", path, err)
	}
	return fleet.Cars, nil
}
