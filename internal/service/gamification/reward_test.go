package gamification

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"locova/internal/domain/engagement"
	domain "locova/internal/domain/gamification"
)

// MockLedger is a mock implementation of the reward ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) HasEntry(ctx context.Context, key domain.LedgerKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Insert(ctx context.Context, key domain.LedgerKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockPoints is a mock implementation of the points store
type MockPoints struct {
	mock.Mock
}

func (m *MockPoints) IncrementPoints(ctx context.Context, userID string, amount int) (*int, error) {
	args := m.Called(ctx, userID, amount)
	total, _ := args.Get(0).(*int)
	return total, args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var likeKey = domain.LedgerKey{TargetID: "trend-1", UserID: "user-1", Action: domain.ActionLikeTrend}

func TestRewardGuard_ClaimCreditsOnce(t *testing.T) {
	ctx := context.Background()
	ledger := &MockLedger{}
	points := &MockPoints{}

	total := 12
	ledger.On("HasEntry", ctx, likeKey).Return(false, nil).Once()
	ledger.On("Insert", ctx, likeKey).Return(nil).Once()
	points.On("IncrementPoints", ctx, "user-1", 2).Return(&total, nil).Once()

	guard := NewRewardGuard(ledger, points, quietLogger())

	outcome, err := guard.Claim(ctx, likeKey, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCredited, outcome)

	ledger.AssertExpectations(t)
	points.AssertExpectations(t)
}

func TestRewardGuard_ClaimAlreadyInLedger(t *testing.T) {
	ctx := context.Background()
	ledger := &MockLedger{}
	points := &MockPoints{}

	ledger.On("HasEntry", ctx, likeKey).Return(true, nil)

	guard := NewRewardGuard(ledger, points, quietLogger())

	outcome, err := guard.Claim(ctx, likeKey, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCredited, outcome)

	ledger.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	points.AssertNotCalled(t, "IncrementPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestRewardGuard_ClaimConflictIsNotAnError(t *testing.T) {
	ctx := context.Background()
	ledger := &MockLedger{}
	points := &MockPoints{}

	ledger.On("HasEntry", ctx, likeKey).Return(false, nil)
	ledger.On("Insert", ctx, likeKey).Return(domain.ErrLedgerConflict)

	guard := NewRewardGuard(ledger, points, quietLogger())

	outcome, err := guard.Claim(ctx, likeKey, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCredited, outcome)
	points.AssertNotCalled(t, "IncrementPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestRewardGuard_ClaimPropagatesFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend unavailable")

	t.Run("ledger read", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("HasEntry", ctx, likeKey).Return(false, boom)

		outcome, err := NewRewardGuard(ledger, &MockPoints{}, quietLogger()).Claim(ctx, likeKey, 2)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, OutcomeFailed, outcome)
	})

	t.Run("ledger insert", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("HasEntry", ctx, likeKey).Return(false, nil)
		ledger.On("Insert", ctx, likeKey).Return(boom)

		outcome, err := NewRewardGuard(ledger, &MockPoints{}, quietLogger()).Claim(ctx, likeKey, 2)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, OutcomeFailed, outcome)
	})

	t.Run("increment", func(t *testing.T) {
		ledger := &MockLedger{}
		points := &MockPoints{}
		ledger.On("HasEntry", ctx, likeKey).Return(false, nil)
		ledger.On("Insert", ctx, likeKey).Return(nil)
		points.On("IncrementPoints", ctx, "user-1", 2).Return(nil, boom)

		outcome, err := NewRewardGuard(ledger, points, quietLogger()).Claim(ctx, likeKey, 2)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, OutcomeFailed, outcome)
	})
}

func TestRewardGuard_AfterToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivated never touches ledger or points", func(t *testing.T) {
		ledger := &MockLedger{}
		points := &MockPoints{}

		outcome := NewRewardGuard(ledger, points, quietLogger()).AfterToggle(ctx, engagement.Deactivated, likeKey, 2)
		assert.Equal(t, OutcomeSkipped, outcome)

		ledger.AssertNotCalled(t, "HasEntry", mock.Anything, mock.Anything)
		points.AssertNotCalled(t, "IncrementPoints", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("HasEntry", ctx, likeKey).Return(false, errors.New("timeout"))

		outcome := NewRewardGuard(ledger, &MockPoints{}, quietLogger()).AfterToggle(ctx, engagement.Activated, likeKey, 2)
		assert.Equal(t, OutcomeFailed, outcome)
	})
}

func TestRewardGuard_NonPositiveAmountIsSkipped(t *testing.T) {
	ledger := &MockLedger{}
	points := &MockPoints{}
	guard := NewRewardGuard(ledger, points, quietLogger())

	outcome, err := guard.Claim(context.Background(), likeKey, -3)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	total, err := guard.Award(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Nil(t, total)

	points.AssertNotCalled(t, "IncrementPoints", mock.Anything, mock.Anything, mock.Anything)
}

// racingLedger reports every key as absent so that concurrent claimers all
// reach the insert; only the first insert succeeds.
type racingLedger struct {
	mu      sync.Mutex
	entries map[domain.LedgerKey]bool
	ready   sync.WaitGroup
}

func (l *racingLedger) HasEntry(ctx context.Context, key domain.LedgerKey) (bool, error) {
	l.ready.Done()
	l.ready.Wait()
	return false, nil
}

func (l *racingLedger) Insert(ctx context.Context, key domain.LedgerKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries[key] {
		return domain.ErrLedgerConflict
	}
	l.entries[key] = true
	return nil
}

type countingPoints struct {
	mu      sync.Mutex
	calls   int
	amounts []int
}

func (p *countingPoints) IncrementPoints(ctx context.Context, userID string, amount int) (*int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.amounts = append(p.amounts, amount)
	return nil, nil
}

func TestRewardGuard_ConcurrentClaimsCreditExactlyOnce(t *testing.T) {
	const claimers = 2

	ledger := &racingLedger{entries: make(map[domain.LedgerKey]bool)}
	ledger.ready.Add(claimers)
	points := &countingPoints{}
	guard := NewRewardGuard(ledger, points, quietLogger())

	outcomes := make([]Outcome, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = guard.AfterToggle(context.Background(), engagement.Activated, likeKey, 2)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, points.calls)
	assert.ElementsMatch(t, []Outcome{OutcomeCredited, OutcomeAlreadyCredited}, outcomes)
}
