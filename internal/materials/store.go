// Package materials persists the raw-material catalog: the physical
// attributes the optimizer needs to turn a material id into numbers.
package materials

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a material id does not exist.
var ErrNotFound = errors.New("material not found")

// Material is one raw material roll specification.
type Material struct {
	ID            int64
	Name          string
	MasterWidthMm float64
	GSM           float64
	CostPerTonne  float64
	// RollWeightKg is zero when the supplier never provided a roll weight.
	RollWeightKg float64
	Notes        string
	Active       bool
}

// Store reads and writes materials in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns all materials, newest first.
func (s *Store) List() ([]Material, error) {
	rows, err := s.db.Query(`
		SELECT id, name, master_width_mm, gsm, cost_per_tonne, COALESCE(roll_weight_kg, 0), COALESCE(notes, ''), active
		FROM materials
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	materials := make([]Material, 0)
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.MasterWidthMm, &m.GSM, &m.CostPerTonne, &m.RollWeightKg, &m.Notes, &m.Active); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	return materials, nil
}

// Get resolves a material id to its full descriptor.
func (s *Store) Get(id int64) (Material, error) {
	var m Material
	err := s.db.QueryRow(`
		SELECT id, name, master_width_mm, gsm, cost_per_tonne, COALESCE(roll_weight_kg, 0), COALESCE(notes, ''), active
		FROM materials
		WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.MasterWidthMm, &m.GSM, &m.CostPerTonne, &m.RollWeightKg, &m.Notes, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Material{}, ErrNotFound
	}
	if err != nil {
		return Material{}, fmt.Errorf("query material %d: %w", id, err)
	}
	return m, nil
}

// Create inserts a material and returns its id. A zero RollWeightKg is
// stored as NULL so "unknown" survives round trips.
func (s *Store) Create(m Material) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO materials (name, master_width_mm, gsm, cost_per_tonne, roll_weight_kg, notes, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Name, m.MasterWidthMm, m.GSM, m.CostPerTonne, nullableWeight(m.RollWeightKg), m.Notes, m.Active)
	if err != nil {
		return 0, fmt.Errorf("insert material: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("material insert id: %w", err)
	}
	return id, nil
}

// Update rewrites a material in place.
func (s *Store) Update(m Material) error {
	res, err := s.db.Exec(`
		UPDATE materials
		SET
			name = ?,
			master_width_mm = ?,
			gsm = ?,
			cost_per_tonne = ?,
			roll_weight_kg = ?,
			notes = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Name, m.MasterWidthMm, m.GSM, m.CostPerTonne, nullableWeight(m.RollWeightKg), m.Notes, m.Active, m.ID)
	if err != nil {
		return fmt.Errorf("update material %d: %w", m.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("material update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableWeight(kg float64) any {
	if kg <= 0 {
		return nil
	}
	return kg
}
