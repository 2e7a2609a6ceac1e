package models

import "strings"

// TargetKind names the kind of content a vote is cast on.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

func (k TargetKind) Valid() bool {
	return k == TargetQuestion || k == TargetAnswer
}

// Direction is the direction of a cast vote.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

// ParseDirection accepts "up"/"upvote" and "down"/"downvote".
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up", "upvote":
		return DirectionUp, nil
	case "down", "downvote":
		return DirectionDown, nil
	}
	return "", NewValidationError("Invalid vote direction")
}

// VoteState is a voter's standing vote on a target.
type VoteState string

const (
	VoteNone VoteState = "none"
	VoteUp   VoteState = "up"
	VoteDown VoteState = "down"
)

// Votes is the tally carried by questions and answers: the voters on each side.
type Votes struct {
	Upvotes   IDSet `json:"upvotes"`
	Downvotes IDSet `json:"downvotes"`
}

// Side returns the voter set for d.
func (v *Votes) Side(d Direction) *IDSet {
	if d == DirectionUp {
		return &v.Upvotes
	}
	return &v.Downvotes
}

// Score is upvotes minus downvotes.
func (v Votes) Score() int {
	return v.Upvotes.Len() - v.Downvotes.Len()
}

// StateOf reports how voterID currently stands on this tally.
func (v Votes) StateOf(voterID uint) VoteState {
	switch {
	case v.Upvotes.Contains(voterID):
		return VoteUp
	case v.Downvotes.Contains(voterID):
		return VoteDown
	default:
		return VoteNone
	}
}

// Votable is implemented by content that carries a vote tally.
type Votable interface {
	Tally() *Votes
	OwnerID() uint
}

// VoteResult is returned after a vote is applied.
type VoteResult struct {
	TargetKind   TargetKind `json:"target_kind"`
	TargetID     uint       `json:"target_id"`
	Upvotes      int        `json:"upvotes"`
	Downvotes    int        `json:"downvotes"`
	Score        int        `json:"score"`
	UpvoterIDs   []uint     `json:"upvoter_ids"`
	DownvoterIDs []uint     `json:"downvoter_ids"`
	State        VoteState  `json:"state"`
}

// NewVoteResult snapshots the tally for a target after a vote.
func NewVoteResult(kind TargetKind, targetID uint, votes Votes, state VoteState) *VoteResult {
	return &VoteResult{
		TargetKind:   kind,
		TargetID:     targetID,
		Upvotes:      votes.Upvotes.Len(),
		Downvotes:    votes.Downvotes.Len(),
		Score:        votes.Score(),
		UpvoterIDs:   votes.Upvotes.IDs(),
		DownvoterIDs: votes.Downvotes.IDs(),
		State:        state,
	}
}
