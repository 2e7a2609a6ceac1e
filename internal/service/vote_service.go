// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"log/slog"

	"stackit/internal/featureflags"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VoteNotifier receives vote events that may notify the content author.
type VoteNotifier interface {
	NotifyOnVote(ctx context.Context, ev VoteEvent) *models.Notification
}

// VoteService owns every change to vote tallies and vote histories.
type VoteService struct {
	votes    repository.VoteStore
	notifier VoteNotifier
	flags    *featureflags.Manager
}

type ApplyVoteInput struct {
	ActorID   uint
	Kind      models.TargetKind
	TargetID  uint
	Direction models.Direction
}

func NewVoteService(votes repository.VoteStore, notifier VoteNotifier, flags *featureflags.Manager) *VoteService {
	return &VoteService{votes: votes, notifier: notifier, flags: flags}
}

// ApplyVote casts, switches or retracts the actor's vote on a question or answer.
// Voting the same direction twice retracts the vote; voting the opposite
// direction moves it.
func (s *VoteService) ApplyVote(ctx context.Context, in ApplyVoteInput) (*models.VoteResult, error) {
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("Invalid vote target")
	}
	if !in.Direction.Valid() {
		return nil, models.NewValidationError("Invalid vote direction")
	}

	ctx, span := observability.StartSpan(ctx, "vote.apply",
		attribute.String("vote.kind", string(in.Kind)),
		attribute.Int64("vote.target_id", int64(in.TargetID)),
		attribute.String("vote.direction", string(in.Direction)),
	)

	var (
		state     models.VoteState
		outcome   string
		actorName string
	)
	target, err := s.votes.Apply(ctx, in.ActorID, in.Kind, in.TargetID, func(voter *models.User, target models.Votable) error {
		if voter.IsBanned {
			return models.NewForbiddenError("Your account is banned")
		}
		actorName = voter.Name
		state, outcome = transition(voter, in.Kind, in.TargetID, target.Tally(), in.Direction)
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		if models.HasCode(err, models.CodePersistence) {
			observability.VotesTotal.WithLabelValues(string(in.Kind), observability.VoteOutcomeFailed).Inc()
			middleware.Logger.WarnContext(ctx, "vote not recorded, voter history and tally left unchanged",
				slog.Uint64("actor_id", uint64(in.ActorID)),
				slog.String("kind", string(in.Kind)),
				slog.Uint64("target_id", uint64(in.TargetID)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	observability.VotesTotal.WithLabelValues(string(in.Kind), outcome).Inc()

	if outcome != observability.VoteOutcomeRetracted && s.notifier != nil && s.flags.Enabled(featureflags.VoteNotifications, in.ActorID) {
		s.notifier.NotifyOnVote(ctx, voteEvent(in, actorName, target))
	}

	return models.NewVoteResult(in.Kind, in.TargetID, *target.Tally(), state), nil
}

// transition applies a vote in direction d to the voter's history sets for
// kind and to the target's tally. Afterwards the pair (voter, target) is in
// at most one side of each, and both sides agree.
func transition(voter *models.User, kind models.TargetKind, targetID uint, tally *models.Votes, d models.Direction) (models.VoteState, string) {
	same := voter.History(kind, d)
	opposite := voter.History(kind, d.Opposite())

	if same.Contains(targetID) || tally.Side(d).Contains(voter.ID) {
		same.Remove(targetID)
		tally.Side(d).Remove(voter.ID)
		return models.VoteNone, observability.VoteOutcomeRetracted
	}

	outcome := observability.VoteOutcomeAdded
	if opposite.Remove(targetID) {
		outcome = observability.VoteOutcomeSwitched
	}
	if tally.Side(d.Opposite()).Remove(voter.ID) {
		outcome = observability.VoteOutcomeSwitched
	}

	same.Add(targetID)
	tally.Side(d).Add(voter.ID)
	if d == models.DirectionUp {
		return models.VoteUp, outcome
	}
	return models.VoteDown, outcome
}

func voteEvent(in ApplyVoteInput, actorName string, target models.Votable) VoteEvent {
	ev := VoteEvent{
		ActorID:     in.ActorID,
		ActorName:   actorName,
		RecipientID: target.OwnerID(),
		Kind:        in.Kind,
		Direction:   in.Direction,
	}
	switch t := target.(type) {
	case *models.Question:
		ev.QuestionID = t.ID
	case *models.Answer:
		ev.QuestionID = t.QuestionID
		id := t.ID
		ev.AnswerID = &id
	}
	return ev
}
