package game

import "math/rand"

// SeerCheck is a private result delivered only to the acting seer.
type SeerCheck struct {
	SeerID     string
	TargetID   string
	IsWerewolf bool
}

type Death struct {
	PlayerID string
	Reason   DeathReason
}

// NightResult is the proposed outcome of one night. The room machine applies
// it; the resolver itself never mutates the room.
type NightResult struct {
	Deaths       []Death
	Checks       []SeerCheck
	KillTarget   string
	SavedTarget  string
	AntidoteUsed bool
	PoisonUsed   bool
}

// ResolveWerewolfVote tallies the wolves' kill submissions into a single team
// target. Ties break by uniform random pick among the tied targets. On round 1
// with protectHumans set, human seats are removed from the pool first; if that
// empties the pool the wolves fall back to a random living AI non-wolf, and
// with no such candidate the night stays calm.
func ResolveWerewolfVote(r *Room, protectHumans bool, rnd *rand.Rand) string {
	counts := map[string]int{}
	order := []string{}
	for _, a := range r.NightActions {
		if a.Kind != ActionKill || a.TargetID == "" {
			continue
		}
		if _, seen := counts[a.TargetID]; !seen {
			order = append(order, a.TargetID)
		}
		counts[a.TargetID]++
	}

	max := 0
	top := []string{}
	for _, id := range order {
		switch {
		case counts[id] > max:
			max = counts[id]
			top = top[:0]
			top = append(top, id)
		case counts[id] == max:
			top = append(top, id)
		}
	}

	firstNight := r.CurrentRound == 1 && protectHumans
	if firstNight {
		filtered := top[:0]
		for _, id := range top {
			if p := r.Player(id); p != nil && p.IsAI() {
				filtered = append(filtered, id)
			}
		}
		top = filtered
	}

	var target string
	if len(top) > 0 {
		target = top[rnd.Intn(len(top))]
	} else if firstNight {
		candidates := []*Player{}
		for _, p := range r.Alive() {
			if p.Role != RoleWerewolf && p.IsAI() {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) > 0 {
			target = candidates[rnd.Intn(len(candidates))].ID
		}
	}
	return target
}

// CollapseWerewolfKill replaces the individual wolf kill submissions with the
// final team decision so the witch hint and the resolver see a single target.
func (r *Room) CollapseWerewolfKill(target string) {
	kept := r.NightActions[:0]
	for _, a := range r.NightActions {
		if a.Kind != ActionKill {
			kept = append(kept, a)
		}
	}
	r.NightActions = kept
	if target != "" {
		r.NightActions = append(r.NightActions, NightAction{
			ActorID:  WerewolfTeamActor,
			Kind:     ActionKill,
			TargetID: target,
		})
	}
}

// NightKillTarget returns the pending kill target, if any. Used for the
// witch's hint before resolution.
func (r *Room) NightKillTarget() string {
	for _, a := range r.NightActions {
		if a.Kind == ActionKill {
			return a.TargetID
		}
	}
	return ""
}

// ResolveNight applies the night interaction rules to the submitted actions.
//
// Rules, in order:
//   - protect + save on the kill target cancel each other and the target dies
//     anyway (break-through); either alone saves; neither kills.
//   - poison kills unconditionally, ignoring protection, and its death reason
//     overwrites a kill on the same target (poison gates hunter eligibility).
//   - a used potion is consumed whether or not it changed the outcome.
//   - seer checks resolve to werewolf / not-werewolf, delivered privately.
func ResolveNight(r *Room) NightResult {
	var res NightResult
	var saveTarget, poisonTarget, protectTarget string

	for _, a := range r.NightActions {
		switch a.Kind {
		case ActionKill:
			res.KillTarget = a.TargetID
		case ActionSave:
			saveTarget = a.TargetID
		case ActionPoison:
			poisonTarget = a.TargetID
		case ActionProtect:
			protectTarget = a.TargetID
		case ActionCheck:
			if target := r.Player(a.TargetID); target != nil {
				res.Checks = append(res.Checks, SeerCheck{
					SeerID:     a.ActorID,
					TargetID:   a.TargetID,
					IsWerewolf: target.Role == RoleWerewolf,
				})
			}
		}
	}

	res.AntidoteUsed = saveTarget != ""
	res.PoisonUsed = poisonTarget != ""

	if res.KillTarget != "" {
		protected := protectTarget == res.KillTarget
		saved := saveTarget == res.KillTarget
		switch {
		case protected && saved:
			// Break-through: guard and antidote on the same target neutralize
			// each other.
			res.Deaths = append(res.Deaths, Death{PlayerID: res.KillTarget, Reason: DeathKilled})
		case protected, saved:
			if saved {
				res.SavedTarget = res.KillTarget
			}
		default:
			res.Deaths = append(res.Deaths, Death{PlayerID: res.KillTarget, Reason: DeathKilled})
		}
	}

	if poisonTarget != "" {
		kept := res.Deaths[:0]
		for _, d := range res.Deaths {
			if d.PlayerID != poisonTarget {
				kept = append(kept, d)
			}
		}
		res.Deaths = append(kept, Death{PlayerID: poisonTarget, Reason: DeathPoisoned})
	}

	return res
}

// Apply commits a night result to the room: deaths, potion consumption, and a
// public log entry that does not distinguish kill from poison.
func (res NightResult) Apply(r *Room) []string {
	deadIDs := []string{}
	for _, d := range res.Deaths {
		if p := r.Player(d.PlayerID); p != nil {
			p.Kill(d.Reason)
			deadIDs = append(deadIDs, p.ID)
		}
	}
	if res.AntidoteUsed {
		r.WitchPotions.Antidote = false
	}
	if res.PoisonUsed {
		r.WitchPotions.Poison = false
	}
	r.Log("night_resolved", map[string]any{"deaths": deadIDs})
	return deadIDs
}
