package ai

// Weights tune how strongly a persona reacts to what it hears. All weights
// multiply base deltas produced by speech analysis; Chaos adds noise.
type Weights struct {
	Logic       float64 `json:"w_logic"`
	Tone        float64 `json:"w_tone"`
	SelfDefense float64 `json:"w_self"`
	Stickiness  float64 `json:"w_stick"`
	Chaos       float64 `json:"n_chaos"`
}

// Special behaviors layered on top of the weight blend.
const (
	SpecialNone            = ""
	SpecialPeacemakerDilute = "peacemaker_dilute" // halves every computed delta
	SpecialRookieChaos      = "rookie_chaos"      // occasionally flips the delta sign
	SpecialTunnelLock       = "tunnel_lock"       // piles on once a read is already hot
	SpecialDoubleAgent      = "double_agent"      // a wolf that keeps teammates mildly suspect on paper
)

// Persona is a named AI temperament. Style and Strategy feed the speech
// prompt; Weights and Special feed the suspicion engine.
type Persona struct {
	Name     string  `json:"name"`
	Style    string  `json:"style"`
	Strategy string  `json:"strategy"`
	Weights  Weights `json:"weights"`
	Special  string  `json:"special,omitempty"`
}

// Presets mirror the shipped companion temperaments. Keyed by family name;
// seat assignment cycles through them in order.
var Presets = []Persona{
	{
		Name:     "alpha",
		Style:    "confident, direct, a little impatient",
		Strategy: "lead the table, commit to reads early, push votes",
		Weights:  Weights{Logic: 1.2, Tone: 0.6, SelfDefense: 1.1, Stickiness: 0.85, Chaos: 0.05},
		Special:  SpecialTunnelLock,
	},
	{
		Name:     "aqua",
		Style:    "calm, measured, conflict-averse",
		Strategy: "de-escalate, weigh both sides, vote late",
		Weights:  Weights{Logic: 1.0, Tone: 0.3, SelfDefense: 0.6, Stickiness: 0.9, Chaos: 0.05},
		Special:  SpecialPeacemakerDilute,
	},
	{
		Name:     "shadow",
		Style:    "terse, observant, slightly menacing",
		Strategy: "say little, remember everything, strike when sure",
		Weights:  Weights{Logic: 1.1, Tone: 0.8, SelfDefense: 1.3, Stickiness: 0.95, Chaos: 0.1},
		Special:  SpecialDoubleAgent,
	},
	{
		Name:     "rookie",
		Style:    "eager, scattered, easily swayed",
		Strategy: "follow the table mood, change reads often",
		Weights:  Weights{Logic: 0.7, Tone: 1.2, SelfDefense: 0.9, Stickiness: 0.6, Chaos: 0.3},
		Special:  SpecialRookieChaos,
	},
}

// UpsertPreset replaces a same-named preset or appends a new one. Operator
// personas loaded from the database land here at startup.
func UpsertPreset(p Persona) {
	for i := range Presets {
		if Presets[i].Name == p.Name {
			Presets[i] = p
			return
		}
	}
	Presets = append(Presets, p)
}

// PersonaFor deterministically assigns a preset to a seat position.
func PersonaFor(position int) Persona {
	if position < 1 {
		position = 1
	}
	return Presets[(position-1)%len(Presets)]
}
