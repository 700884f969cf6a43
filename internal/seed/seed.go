// Package seed loads the initial material catalog so a fresh install can
// run a calculation without any manual data entry.
package seed

import (
	"database/sql"
	"fmt"
)

type defaultMaterial struct {
	name          string
	masterWidthMm float64
	gsm           float64
	costPerTonne  float64
	rollWeightKg  float64
	notes         string
}

var defaults = []defaultMaterial{
	{
		name:          "Kraft 80gsm",
		masterWidthMm: 1600,
		gsm:           80,
		costPerTonne:  1250,
		rollWeightKg:  500,
		notes:         "default brown kraft master roll",
	},
	{
		name:          "Greaseproof 40gsm",
		masterWidthMm: 1200,
		gsm:           40,
		costPerTonne:  1890,
		rollWeightKg:  300,
	},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way: each default material
// is inserted only when no material of the same name exists yet.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, m := range defaults {
		if err := ensureMaterial(tx, m, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureMaterial(tx *sql.Tx, m defaultMaterial, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM materials WHERE name = ? LIMIT 1)`, m.name).Scan(&exists); err != nil {
		return fmt.Errorf("check material existence: %w", err)
	}
	if exists {
		return nil
	}

	_, err := tx.Exec(`
		INSERT INTO materials (name, master_width_mm, gsm, cost_per_tonne, roll_weight_kg, notes, active)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)
	`, m.name, m.masterWidthMm, m.gsm, m.costPerTonne, m.rollWeightKg, m.notes)
	if err != nil {
		return fmt.Errorf("insert default material %q: %w", m.name, err)
	}

	stats.Inserts++
	return nil
}
