package game

import "math/rand"

type Role string

const (
	RoleWerewolf Role = "werewolf"
	RoleVillager Role = "villager"
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleHunter   Role = "hunter"
	RoleGuard    Role = "guard"
)

type ActionKind string

const (
	ActionKill    ActionKind = "kill"
	ActionCheck   ActionKind = "check"
	ActionSave    ActionKind = "save"
	ActionPoison  ActionKind = "poison"
	ActionProtect ActionKind = "protect"
)

// NightActionRole maps an action kind to the role allowed to submit it.
var NightActionRole = map[ActionKind]Role{
	ActionKill:    RoleWerewolf,
	ActionCheck:   RoleSeer,
	ActionSave:    RoleWitch,
	ActionPoison:  RoleWitch,
	ActionProtect: RoleGuard,
}

// RolePreset is the role composition for one seat count.
type RolePreset map[Role]int

// Presets keyed by seat count. Overridable via the store's role_presets table.
var Presets = map[int]RolePreset{
	6:  {RoleWerewolf: 2, RoleVillager: 2, RoleSeer: 1, RoleWitch: 1},
	9:  {RoleWerewolf: 3, RoleVillager: 3, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1},
	12: {RoleWerewolf: 4, RoleVillager: 4, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleGuard: 1},
}

// rolePoolOrder keeps shuffles reproducible under a fixed seed: map iteration
// order would leak into the deal otherwise.
var rolePoolOrder = []Role{RoleWerewolf, RoleVillager, RoleSeer, RoleWitch, RoleHunter, RoleGuard}

// RolePool expands a preset into a flat slice, in stable order.
func RolePool(preset RolePreset) []Role {
	pool := make([]Role, 0, 12)
	for _, r := range rolePoolOrder {
		for i := 0; i < preset[r]; i++ {
			pool = append(pool, r)
		}
	}
	return pool
}

// AssignRoles deals a shuffled role pool to the players in seat order.
// The pool size must equal the player count.
func AssignRoles(players []*Player, preset RolePreset, rnd *rand.Rand) error {
	pool := RolePool(preset)
	if len(pool) != len(players) {
		return ErrInvalidSeatCount
	}
	rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for i, p := range players {
		p.Role = pool[i]
	}
	return nil
}
