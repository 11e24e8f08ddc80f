package store

import (
	"context"
	"encoding/json"

	"midnight-village/internal/game"
)

// LoadRolePresets reads operator-defined role compositions. Rows override the
// compiled-in defaults for their seat count; an empty table changes nothing.
func (s *Store) LoadRolePresets(ctx context.Context) (map[int]game.RolePreset, error) {
	rows, err := s.Pool.Query(ctx, `SELECT seats, preset FROM role_presets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]game.RolePreset{}
	for rows.Next() {
		var seats int
		var raw []byte
		if err := rows.Scan(&seats, &raw); err != nil {
			return nil, err
		}
		counts := map[game.Role]int{}
		if err := json.Unmarshal(raw, &counts); err != nil {
			return nil, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		if total != seats {
			continue
		}
		out[seats] = counts
	}
	return out, rows.Err()
}

// SaveRolePreset upserts one seat count's composition.
func (s *Store) SaveRolePreset(ctx context.Context, seats int, preset game.RolePreset) error {
	raw, err := json.Marshal(preset)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO role_presets (seats, preset) VALUES ($1, $2)
		 ON CONFLICT (seats) DO UPDATE SET preset = EXCLUDED.preset`,
		seats, raw)
	return err
}
