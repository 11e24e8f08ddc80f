package ai

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"midnight-village/internal/game"
)

// Update is one recomputed read on another player, with the reasoning that
// produced it. Updates are sorted most-suspicious first.
type Update struct {
	PlayerID   string
	PlayerName string
	Position   int
	Suspicion  float64
	Reason     Reason
}

// Reason explains an Update in terms a spectator panel can render.
type Reason struct {
	Logic       string  `json:"logic"`
	Reaction    string  `json:"reaction"`
	BaseChange  float64 `json:"base_change"`
	WeightedBy  float64 `json:"weighted_by"`
	FinalChange float64 `json:"final_change"`
}

const (
	suspicionFloor   = 0.0
	suspicionCeiling = 100.0
	suspicionNeutral = 50.0
)

// Threat levels for claimed power roles, used when a werewolf reinterprets a
// claim as a priority target rather than a reason for trust.
var claimThreat = map[game.Role]float64{
	game.RoleSeer:   100,
	game.RoleWitch:  90,
	game.RoleHunter: 70,
	game.RoleGuard:  60,
}

var (
	reAttackVerb    = regexp.MustCompile(`(?i)\b(vote (him|her|them) out|vote out|lynch|eliminate|hang|execute|he'?s a wolf|she'?s a wolf|they'?re a wolf|definitely (the|a) wolf)\b`)
	rePowerRoleWord = regexp.MustCompile(`(?i)\b(seer|witch|hunter|guard)\b`)
	reContradiction = regexp.MustCompile(`(?i)\b(i said before|earlier i|i trusted .* but now|changed my mind again|actually,? forget what i said)\b`)
	reSingleTrack   = regexp.MustCompile(`(?i)\b(definitely|no doubt|one hundred percent|must be the wolf|it can only be)\b`)
	rePseudoLogic   = regexp.MustCompile(`(?i)\b(obviously|clearly|everyone knows|it'?s simple logic|trust me on this)\b`)
	reBandwagon     = regexp.MustCompile(`(?i)\b(same as above|i agree with (seat|#)|whatever (he|she|they) said|i'?ll just follow|pass my turn)\b`)
	reClaimSeer     = regexp.MustCompile(`(?i)\b(i am|i'?m) (the )?seer\b|\bi checked (seat|#)?\s?\d`)
	reClaimWitch    = regexp.MustCompile(`(?i)\b(i am|i'?m) (the )?witch\b|\bi (used|have) (the |a )?(antidote|poison)\b`)
	reClaimHunter   = regexp.MustCompile(`(?i)\b(i am|i'?m) (the )?hunter\b|\bi('?ll)? take (someone|one of you) with me\b`)
	reClaimGuard    = regexp.MustCompile(`(?i)\b(i am|i'?m) (the )?guard\b|\bi protected (seat|#)?\s?\d`)
)

// Toxicity markers with individual weights; the summed weight is divided by
// four and capped at 30, so swearing alone never decides a read.
var toxicMarkers = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?i)\b(idiot|moron|stupid|clown)\b`), 60},
	{regexp.MustCompile(`(?i)\bi (swear|bet my life)\b`), 40},
	{regexp.MustCompile(`(?i)\b(shut up|nobody asked)\b`), 50},
	{regexp.MustCompile(`(?i)\b(trash|garbage) (take|read|play)\b`), 45},
}

// speechSignals is what the keyword pass extracts from one player's recent
// speeches before any persona weighting.
type speechSignals struct {
	baseChange      float64
	toneIntensity   float64
	summary         []string
	attackedGod     bool
	justifiedAttack bool
	claimedRole     game.Role
	claimConfidence float64
}

func analyzeSpeeches(speeches []game.Speech) speechSignals {
	var sig speechSignals
	for _, sp := range speeches {
		text := sp.Content

		attacking := reAttackVerb.MatchString(text)
		if attacking && rePowerRoleWord.MatchString(text) {
			sig.baseChange += 30
			sig.attackedGod = true
			sig.summary = append(sig.summary, "attacked a claimed power role")
		}
		if reContradiction.MatchString(text) {
			sig.baseChange += 20
			sig.summary = append(sig.summary, "contradicted an earlier stance")
		}
		if reSingleTrack.MatchString(text) {
			sig.baseChange += 15
			sig.toneIntensity += 10
			sig.summary = append(sig.summary, "tunnel-visioned without evidence")
		}
		if rePseudoLogic.MatchString(text) {
			sig.baseChange += 10
			sig.summary = append(sig.summary, "leaned on pseudo-logic")
		}
		if reBandwagon.MatchString(text) {
			sig.baseChange += 10
			sig.summary = append(sig.summary, "bandwagoned instead of reasoning")
		}
		if attacking && containsEvidenceMarker(text) {
			sig.justifiedAttack = true
		}

		var toxic float64
		for _, m := range toxicMarkers {
			if m.re.MatchString(text) {
				toxic += m.weight
			}
		}
		if toxic > 0 {
			toxic = toxic / 4
			if toxic > 30 {
				toxic = 30
			}
			sig.baseChange += toxic
			sig.toneIntensity += toxic
			sig.summary = append(sig.summary, "hostile tone")
		}

		if role, conf := detectRoleClaim(text); role != "" && conf > sig.claimConfidence {
			sig.claimedRole = role
			sig.claimConfidence = conf
		}
	}
	return sig
}

func containsEvidenceMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"because", "last night", "the vote showed", "check came back", "i checked"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// detectRoleClaim returns the claimed role and a confidence in (0,1]. Explicit
// first-person claims score 0.9; oblique hints score lower.
func detectRoleClaim(text string) (game.Role, float64) {
	switch {
	case reClaimSeer.MatchString(text):
		return game.RoleSeer, 0.9
	case reClaimWitch.MatchString(text):
		return game.RoleWitch, 0.9
	case reClaimHunter.MatchString(text):
		return game.RoleHunter, 0.8
	case reClaimGuard.MatchString(text):
		return game.RoleGuard, 0.8
	}
	if regexp.MustCompile(`(?i)\btrust me,? i have a role\b`).MatchString(text) {
		return game.RoleVillager, 0.7
	}
	return "", 0
}

func targetedObserver(speeches []game.Speech, observer *game.Player) bool {
	needle := fmt.Sprintf("#%d", observer.Position)
	seat := fmt.Sprintf("seat %d", observer.Position)
	for _, sp := range speeches {
		lower := strings.ToLower(sp.Content)
		if strings.Contains(lower, needle) || strings.Contains(lower, seat) ||
			(observer.Name != "" && strings.Contains(lower, strings.ToLower(observer.Name))) {
			if reAttackVerb.MatchString(sp.Content) || reSingleTrack.MatchString(sp.Content) {
				return true
			}
		}
	}
	return false
}

// recentSpeeches returns the target's utterances from the current round only;
// older rounds already moved the score through stickiness.
func recentSpeeches(p *game.Player, round int) []game.Speech {
	out := []game.Speech{}
	for _, sp := range p.SpeechHistory {
		if sp.Round == round {
			out = append(out, sp)
		}
	}
	return out
}

// ComputeUpdates re-scores every other living player from the observer's point
// of view. Pure apart from rnd; the caller owns committing results to memory.
func ComputeUpdates(observer *game.Player, room *game.Room, persona Persona, mem *Memory, rnd *rand.Rand) []Update {
	updates := []Update{}
	observerIsWolf := observer.Role == game.RoleWerewolf

	for _, target := range room.Alive() {
		if target.ID == observer.ID {
			continue
		}

		prev := mem.SuspicionOf(target.ID)
		if pinned, ok := mem.Confirmed(target.ID); ok {
			updates = append(updates, Update{
				PlayerID:   target.ID,
				PlayerName: target.Name,
				Position:   target.Position,
				Suspicion:  pinned,
				Reason:     Reason{Logic: mem.ReasonFor(target.ID), Reaction: "hard fact"},
			})
			continue
		}
		sig := analyzeSpeeches(recentSpeeches(target, room.CurrentRound))

		logicDelta := sig.baseChange * persona.Weights.Logic
		toneDelta := sig.toneIntensity * persona.Weights.Tone
		var selfDelta float64
		reaction := "steady read"
		if targetedObserver(recentSpeeches(target, room.CurrentRound), observer) {
			selfDelta = 30 * persona.Weights.SelfDefense
			reaction = "they came after me"
			mem.RecordGrudge(target.ID, room.CurrentRound)
		}

		delta := logicDelta + toneDelta + selfDelta
		switch persona.Special {
		case SpecialPeacemakerDilute:
			delta /= 2
		case SpecialRookieChaos:
			delta += (rnd.Float64()*2 - 1) * 30
		case SpecialTunnelLock:
			if prev > 70 {
				delta += 20
				reaction = "already locked in"
			}
		}

		score := clampSuspicion(prev*persona.Weights.Stickiness + delta)
		logicNote := "nothing notable this round"
		if len(sig.summary) > 0 {
			logicNote = strings.Join(sig.summary, "; ")
		}

		// Wolves read the same signals upside down: teammates are never
		// suspects, and a credible power claim is a threat assessment.
		if observerIsWolf {
			switch {
			case target.Role == game.RoleWerewolf:
				if persona.Special == SpecialDoubleAgent {
					score = clampSuspicion(10 + rnd.Float64()*20)
					logicNote = "keeping a plausible read on my own"
				} else {
					score = 0
					logicNote = "packmate"
				}
			case sig.claimedRole != "" && sig.claimConfidence > 0.5:
				threat := claimThreat[sig.claimedRole]
				if threat == 0 {
					threat = 80
				}
				if t := threat * sig.claimConfidence; t > score {
					score = clampSuspicion(t)
					logicNote = fmt.Sprintf("claimed %s; priority threat", sig.claimedRole)
				}
			}
		} else if sig.attackedGod && !sig.justifiedAttack {
			if score < 80 {
				score = 80
				logicNote = "attacked a power role with no evidence"
			}
		}

		mem.SetSuspicion(target.ID, score, logicNote)

		updates = append(updates, Update{
			PlayerID:   target.ID,
			PlayerName: target.Name,
			Position:   target.Position,
			Suspicion:  score,
			Reason: Reason{
				Logic:       logicNote,
				Reaction:    reaction,
				BaseChange:  sig.baseChange,
				WeightedBy:  persona.Weights.Logic,
				FinalChange: score - prev,
			},
		})
	}

	sort.SliceStable(updates, func(i, j int) bool { return updates[i].Suspicion > updates[j].Suspicion })
	return updates
}

func clampSuspicion(v float64) float64 {
	if v < suspicionFloor {
		return suspicionFloor
	}
	if v > suspicionCeiling {
		return suspicionCeiling
	}
	return v
}
