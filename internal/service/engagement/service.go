package engagement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	domainGamification "locova/internal/domain/gamification"
	"locova/internal/domain/identity"
	"locova/internal/domain/realtime"
	"locova/internal/service/gamification"
)

// RewardAmounts holds the one-time bonuses paid for engagement actions
type RewardAmounts struct {
	LikeTrend   int
	LikeComment int
}

// ToggleOutcome reports the new state and what happened to the bonus
type ToggleOutcome struct {
	Result engagement.ToggleResult `json:"result"`
	Reward gamification.Outcome    `json:"reward"`
}

// Service handles like/save toggles and snapshot reads
type Service struct {
	store     engagement.Store
	builder   *SnapshotBuilder
	rewards   *gamification.RewardGuard
	publisher realtime.Publisher
	amounts   RewardAmounts
	busy      sync.Map
	logger    *logrus.Logger
}

// NewService creates a new engagement service
func NewService(
	store engagement.Store,
	builder *SnapshotBuilder,
	rewards *gamification.RewardGuard,
	publisher realtime.Publisher,
	amounts RewardAmounts,
	logger *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		builder:   builder,
		rewards:   rewards,
		publisher: publisher,
		amounts:   amounts,
		logger:    logger,
	}
}

// ToggleLike flips the viewer's like on a trend or comment. The first
// activation per (target, viewer) earns a one-time bonus.
func (s *Service) ToggleLike(ctx context.Context, session identity.Session, kind engagement.Kind, id string) (*ToggleOutcome, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", engagement.ErrInvalidInput, kind)
	}
	id = strings.TrimSpace(id)

	return s.toggle(ctx, session, "like:"+string(kind), id, func() (engagement.ToggleResult, error) {
		return s.store.ToggleLike(ctx, kind, id, session.UserID)
	}, func(result engagement.ToggleResult) gamification.Outcome {
		action, amount := domainGamification.ActionLikeTrend, s.amounts.LikeTrend
		if kind == engagement.KindComment {
			action, amount = domainGamification.ActionLikeComment, s.amounts.LikeComment
		}
		key := domainGamification.LedgerKey{TargetID: id, UserID: session.UserID, Action: action}
		return s.rewards.AfterToggle(ctx, result, key, amount)
	}, likeTable(kind))
}

// ToggleSave flips the viewer's save on a trend. Saves carry no bonus.
func (s *Service) ToggleSave(ctx context.Context, session identity.Session, trendID string) (*ToggleOutcome, error) {
	trendID = strings.TrimSpace(trendID)
	return s.toggle(ctx, session, "save", trendID, func() (engagement.ToggleResult, error) {
		return s.store.ToggleSave(ctx, trendID, session.UserID)
	}, nil, realtime.TableTrendSaves)
}

func (s *Service) toggle(
	ctx context.Context,
	session identity.Session,
	action string,
	id string,
	flip func() (engagement.ToggleResult, error),
	reward func(engagement.ToggleResult) gamification.Outcome,
	table string,
) (*ToggleOutcome, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", engagement.ErrInvalidInput)
	}

	// One in-flight toggle per (action, entity, viewer)
	busyKey := action + ":" + id + ":" + session.UserID
	if _, loaded := s.busy.LoadOrStore(busyKey, struct{}{}); loaded {
		return nil, engagement.ErrBusy
	}
	defer s.busy.Delete(busyKey)

	result, err := flip()
	if err != nil {
		return nil, fmt.Errorf("error toggling %s: %w", action, err)
	}

	outcome := &ToggleOutcome{Result: result, Reward: gamification.OutcomeSkipped}
	if reward != nil {
		outcome.Reward = reward(result)
	}

	s.publish(table, result, id, session.UserID)

	return outcome, nil
}

func (s *Service) publish(table string, result engagement.ToggleResult, id, userID string) {
	if s.publisher == nil {
		return
	}

	op := realtime.OpInsert
	if result == engagement.Deactivated {
		op = realtime.OpDelete
	}

	change := realtime.Change{Table: table, Op: op, EntityID: id, UserID: userID, At: time.Now()}
	if err := s.publisher.Publish(change); err != nil {
		s.logger.WithField("table", table).WithError(err).Warn("Failed to publish change")
	}
}

// Snapshot builds the engagement snapshot for ids as seen by the session
func (s *Service) Snapshot(ctx context.Context, session identity.Session, kind engagement.Kind, ids []string) (*engagement.Snapshot, error) {
	return s.builder.Build(ctx, kind, ids, session.UserID)
}

func likeTable(kind engagement.Kind) string {
	if kind == engagement.KindComment {
		return realtime.TableCommentLikes
	}
	return realtime.TableTrendLikes
}
