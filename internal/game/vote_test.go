package game

import (
	"math/rand"
	"testing"
)

func TestTallyVotesUniqueMaximum(t *testing.T) {
	votes := []Vote{
		{VoterID: "v1", TargetID: "a"},
		{VoterID: "v2", TargetID: "a"},
		{VoterID: "v3", TargetID: "a"},
		{VoterID: "v4", TargetID: "b"},
	}
	out := TallyVotes(votes)
	if out.Eliminated != "a" {
		t.Fatalf("expected a eliminated, got %q (tied=%v)", out.Eliminated, out.Tied)
	}
	if out.MaxVotes != 3 {
		t.Fatalf("expected 3 max votes, got %d", out.MaxVotes)
	}
}

func TestTallyVotesTieNoElimination(t *testing.T) {
	votes := []Vote{
		{VoterID: "v1", TargetID: "a"},
		{VoterID: "v2", TargetID: "a"},
		{VoterID: "v3", TargetID: "b"},
		{VoterID: "v4", TargetID: "b"},
		{VoterID: "v5", TargetID: "c"},
	}
	out := TallyVotes(votes)
	if out.Eliminated != "" {
		t.Fatalf("tie must not eliminate, got %q", out.Eliminated)
	}
	if len(out.Tied) != 2 {
		t.Fatalf("expected two tied targets, got %v", out.Tied)
	}
}

func TestAbstentionsNeverReachTally(t *testing.T) {
	room, _ := NewRoom("t", "host", 6)
	room.PutVote(&room.Votes, Vote{VoterID: "v1", TargetID: "a"})
	room.PutVote(&room.Votes, Vote{VoterID: "v2", TargetID: ""})
	if len(room.Votes) != 1 {
		t.Fatalf("abstention must not create a tally entry, got %v", room.Votes)
	}
	out := TallyVotes(room.Votes)
	if _, ok := out.Counts[""]; ok {
		t.Fatal("empty target must never appear in the count map")
	}
}

func TestVoteOverwriteSemantics(t *testing.T) {
	room, _ := NewRoom("t", "host", 6)
	room.PutVote(&room.Votes, Vote{VoterID: "v1", TargetID: "a"})
	room.PutVote(&room.Votes, Vote{VoterID: "v1", TargetID: "b"})
	if len(room.Votes) != 1 || room.Votes[0].TargetID != "b" {
		t.Fatalf("latest vote must overwrite, got %v", room.Votes)
	}
	// Switching to an abstention withdraws the earlier ballot entirely.
	room.PutVote(&room.Votes, Vote{VoterID: "v1", TargetID: ""})
	if len(room.Votes) != 0 {
		t.Fatalf("abstention must withdraw the prior ballot, got %v", room.Votes)
	}
}

func TestResolveSheriffElectionForcesWinnerOnTie(t *testing.T) {
	votes := []Vote{
		{VoterID: "v1", TargetID: "a"},
		{VoterID: "v2", TargetID: "b"},
	}
	winner, count := ResolveSheriffElection(votes, rand.New(rand.NewSource(11)))
	if winner != "a" && winner != "b" {
		t.Fatalf("sheriff tie must force a winner among the tied, got %q", winner)
	}
	if count != 1 {
		t.Fatalf("expected winning count 1, got %d", count)
	}

	again, _ := ResolveSheriffElection(votes, rand.New(rand.NewSource(11)))
	if winner != again {
		t.Fatalf("same seed must pick the same winner: %s vs %s", winner, again)
	}
}

func TestResolveSheriffElectionNoVotes(t *testing.T) {
	winner, _ := ResolveSheriffElection(nil, rand.New(rand.NewSource(1)))
	if winner != "" {
		t.Fatalf("no ballots means no sheriff, got %q", winner)
	}
}
