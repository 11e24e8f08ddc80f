package game

import "math/rand"

// VoteOutcome is the proposed result of a day-vote tally.
type VoteOutcome struct {
	Eliminated string
	Tied       []string
	Counts     map[string]int
	MaxVotes   int
}

// TallyVotes counts the day vote with strict-majority semantics: a unique
// maximum eliminates, a shared maximum is a tie and nobody is eliminated.
// Abstentions never reach the tally (PutVote drops empty targets).
func TallyVotes(votes []Vote) VoteOutcome {
	out := VoteOutcome{Counts: map[string]int{}}
	order := []string{}
	for _, v := range votes {
		if _, seen := out.Counts[v.TargetID]; !seen {
			order = append(order, v.TargetID)
		}
		out.Counts[v.TargetID]++
	}
	for _, id := range order {
		switch {
		case out.Counts[id] > out.MaxVotes:
			out.MaxVotes = out.Counts[id]
			out.Tied = out.Tied[:0]
			out.Tied = append(out.Tied, id)
		case out.Counts[id] == out.MaxVotes && out.MaxVotes > 0:
			out.Tied = append(out.Tied, id)
		}
	}
	if len(out.Tied) == 1 {
		out.Eliminated = out.Tied[0]
		out.Tied = nil
	}
	return out
}

// ResolveSheriffElection tallies the sheriff vote. Unlike the day vote, a tie
// forces a winner by uniform random pick: an unresolved badge is worse than an
// arbitrary tiebreak.
func ResolveSheriffElection(votes []Vote, rnd *rand.Rand) (winner string, count int) {
	out := TallyVotes(votes)
	switch {
	case out.Eliminated != "":
		return out.Eliminated, out.MaxVotes
	case len(out.Tied) > 1:
		return out.Tied[rnd.Intn(len(out.Tied))], out.MaxVotes
	default:
		return "", 0
	}
}
