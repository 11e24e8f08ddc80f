package store

import (
	"context"
	"encoding/json"

	"midnight-village/internal/ai"
)

// ListPersonas reads operator-defined AI temperaments. Rows with the same name
// as a compiled-in preset replace it; new names extend the rotation.
func (s *Store) ListPersonas(ctx context.Context) ([]ai.Persona, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT name, style, strategy, weights, special FROM personas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ai.Persona{}
	for rows.Next() {
		var p ai.Persona
		var raw []byte
		if err := rows.Scan(&p.Name, &p.Style, &p.Strategy, &raw, &p.Special); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &p.Weights); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePersona upserts one temperament by name.
func (s *Store) SavePersona(ctx context.Context, p ai.Persona) error {
	raw, err := json.Marshal(p.Weights)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO personas (name, style, strategy, weights, special)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET
		     style = EXCLUDED.style, strategy = EXCLUDED.strategy,
		     weights = EXCLUDED.weights, special = EXCLUDED.special`,
		p.Name, p.Style, p.Strategy, raw, p.Special)
	return err
}
