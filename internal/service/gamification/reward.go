package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	domain "locova/internal/domain/gamification"
)

// Outcome reports what a reward claim did
type Outcome string

const (
	OutcomeCredited        Outcome = "credited"
	OutcomeAlreadyCredited Outcome = "already_credited"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeFailed          Outcome = "failed"
)

// RewardGuard grants one-time point bonuses. The ledger's uniqueness
// constraint is the only synchronization between concurrent claimers.
//
// Deactivating an engagement (unlike) never takes points back: rewards are
// one-directional. This is a product decision, see DESIGN.md.
type RewardGuard struct {
	ledger domain.Ledger
	points domain.PointsStore
	logger *logrus.Logger
}

// NewRewardGuard creates a new reward guard
func NewRewardGuard(ledger domain.Ledger, points domain.PointsStore, logger *logrus.Logger) *RewardGuard {
	return &RewardGuard{
		ledger: ledger,
		points: points,
		logger: logger,
	}
}

// Claim credits amount points to key.UserID unless the reward for key was
// already granted. A ledger uniqueness conflict means a concurrent claimer
// won and is reported as OutcomeAlreadyCredited without error.
func (g *RewardGuard) Claim(ctx context.Context, key domain.LedgerKey, amount int) (Outcome, error) {
	if amount <= 0 {
		return OutcomeSkipped, nil
	}

	exists, err := g.ledger.HasEntry(ctx, key)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("error reading reward ledger: %w", err)
	}
	if exists {
		return OutcomeAlreadyCredited, nil
	}

	if err := g.ledger.Insert(ctx, key); err != nil {
		if errors.Is(err, domain.ErrLedgerConflict) {
			return OutcomeAlreadyCredited, nil
		}
		return OutcomeFailed, fmt.Errorf("error inserting reward ledger entry: %w", err)
	}

	if _, err := g.points.IncrementPoints(ctx, key.UserID, amount); err != nil {
		return OutcomeFailed, fmt.Errorf("error incrementing points: %w", err)
	}

	return OutcomeCredited, nil
}

// AfterToggle claims the reward for an activated toggle. Failures are logged
// and reported as OutcomeFailed; the toggle itself is already committed.
func (g *RewardGuard) AfterToggle(ctx context.Context, result engagement.ToggleResult, key domain.LedgerKey, amount int) Outcome {
	if result != engagement.Activated {
		return OutcomeSkipped
	}

	outcome, err := g.Claim(ctx, key, amount)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"user_id":   key.UserID,
			"target_id": key.TargetID,
			"action":    key.Action,
		}).WithError(err).Warn("Reward step failed")
	}

	return outcome
}

// Award grants points for an action that is unique by construction, such as
// submitting a new trend. The new total is returned when the backend reports it.
func (g *RewardGuard) Award(ctx context.Context, userID string, amount int) (*int, error) {
	if amount <= 0 {
		return nil, nil
	}

	total, err := g.points.IncrementPoints(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("error awarding points: %w", err)
	}

	return total, nil
}
