package trends

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	domainGamification "locova/internal/domain/gamification"
	"locova/internal/domain/geo"
	"locova/internal/domain/identity"
	"locova/internal/domain/realtime"
	"locova/internal/domain/trend"
	engagementService "locova/internal/service/engagement"
	"locova/internal/service/gamification"
)

// MaxCommentLength is the longest comment accepted, in characters
const MaxCommentLength = 500

// Rewards holds the point amounts paid by trend actions
type Rewards struct {
	Submit  int
	Comment int
}

// Config contains configuration for the trends service
type Config struct {
	Radius       geo.RadiusLimits
	DefaultLimit int
	Rewards      Rewards
}

// SubmitRequest carries the fields of a new trend
type SubmitRequest struct {
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Coordinates is a submitted point. Either both fields are present or the
// trend carries no point at all.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Location converts c into a stored point, nil when no field was sent
func (c *Coordinates) Location() (*trend.Location, error) {
	if c == nil || (c.Latitude == nil && c.Longitude == nil) {
		return nil, nil
	}
	if c.Latitude == nil || c.Longitude == nil {
		return nil, fmt.Errorf("%w: latitude and longitude must be given together", engagement.ErrInvalidInput)
	}

	location := &trend.Location{Latitude: *c.Latitude, Longitude: *c.Longitude}
	if !location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", engagement.ErrInvalidInput)
	}
	return location, nil
}

// SubmitResult is a stored trend and the author's new point total, when known
type SubmitResult struct {
	Trend  trend.Trend `json:"trend"`
	Points *int        `json:"points,omitempty"`
}

// CommentResult is a stored comment and what happened to its bonus
type CommentResult struct {
	Comment trend.Comment        `json:"comment"`
	Reward  gamification.Outcome `json:"reward"`
}

// ThreadComment is a comment decorated with the viewer's like state
type ThreadComment struct {
	trend.Comment
	LikedByMe bool `json:"liked_by_me"`
}

// Thread is the comment list of a trend
type Thread struct {
	TrendID  string          `json:"trend_id"`
	Comments []ThreadComment `json:"comments"`
}

// Service manages trends, their comments and saved lists
type Service struct {
	store     trend.Store
	snapshots *engagementService.SnapshotBuilder
	rewards   *gamification.RewardGuard
	publisher realtime.Publisher
	config    Config
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new trends service
func NewService(
	store trend.Store,
	snapshots *engagementService.SnapshotBuilder,
	rewards *gamification.RewardGuard,
	publisher realtime.Publisher,
	config Config,
	logger *logrus.Logger,
) *Service {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 50
	}

	return &Service{
		store:     store,
		snapshots: snapshots,
		rewards:   rewards,
		publisher: publisher,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a new trend and awards the author the submission points.
// A failed award is logged and does not fail the submission.
func (s *Service) Submit(ctx context.Context, session identity.Session, req SubmitRequest) (*SubmitResult, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	t := trend.Trend{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(req.Title),
		Category:  strings.TrimSpace(req.Category),
		Location:  strings.TrimSpace(req.Location),
		UserID:    session.UserID,
		CreatedAt: s.now().UTC(),
	}

	if t.Title == "" || t.Category == "" || t.Location == "" {
		return nil, fmt.Errorf("%w: title, category and location are required", engagement.ErrInvalidInput)
	}
	coordinates, err := req.Coordinates.Location()
	if err != nil {
		return nil, err
	}
	t.Coordinates = coordinates

	if err := s.store.CreateTrend(ctx, t); err != nil {
		return nil, fmt.Errorf("error creating trend: %w", err)
	}

	result := &SubmitResult{Trend: t}

	total, err := s.rewards.Award(ctx, session.UserID, s.config.Rewards.Submit)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":  session.UserID,
			"trend_id": t.ID,
		}).WithError(err).Warn("Submission award failed")
	}
	result.Points = total

	s.publish(realtime.TableTrends, t.ID, session.UserID)

	return result, nil
}

// List returns trends for the filter. A scope with a center selects the
// radius query (nearest first); otherwise trends are newest first,
// optionally narrowed to a city.
func (s *Service) List(ctx context.Context, filter trend.Filter) ([]trend.Trend, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	var (
		trends []trend.Trend
		err    error
	)

	if center := filter.Scope.Center; center != nil {
		if !center.Valid() {
			return nil, fmt.Errorf("%w: coordinates out of range", engagement.ErrInvalidInput)
		}
		radius := s.config.Radius.Clamp(filter.Scope.RadiusKm)
		trends, err = s.store.FindTrendsWithinRadius(ctx, *center, radius, limit)
	} else {
		trends, err = s.store.FindTrends(ctx, strings.TrimSpace(filter.City), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing trends: %w", err)
	}

	filtered := make([]trend.Trend, 0, len(trends))
	for _, t := range trends {
		if filter.Matches(t) {
			filtered = append(filtered, t)
		}
	}

	return filtered, nil
}

// Recommended returns the most liked trends
func (s *Service) Recommended(ctx context.Context, limit int) ([]trend.Trend, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	trends, err := s.store.FindRecommended(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recommended trends: %w", err)
	}

	return trends, nil
}

// Get returns a single trend
func (s *Service) Get(ctx context.Context, id string) (*trend.Trend, error) {
	t, err := s.store.GetTrend(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting trend %s: %w", id, err)
	}

	return t, nil
}

// Saved returns the trends the session's user has saved
func (s *Service) Saved(ctx context.Context, session identity.Session) ([]trend.Trend, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	trends, err := s.store.FindSavedTrends(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error listing saved trends: %w", err)
	}

	return trends, nil
}

// AddComment stores a comment on a trend. The first comment per
// (trend, user) earns the comment bonus.
func (s *Service) AddComment(ctx context.Context, session identity.Session, trendID, text string) (*CommentResult, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment is empty", engagement.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", engagement.ErrInvalidInput, MaxCommentLength)
	}

	c := trend.Comment{
		ID:        uuid.New().String(),
		TrendID:   trendID,
		UserID:    session.UserID,
		Body:      text,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("error creating comment: %w", err)
	}

	key := domainGamification.LedgerKey{TargetID: trendID, UserID: session.UserID, Action: domainGamification.ActionComment}
	outcome := s.rewards.AfterToggle(ctx, engagement.Activated, key, s.config.Rewards.Comment)

	s.publish(realtime.TableTrendComments, trendID, session.UserID)

	return &CommentResult{Comment: c, Reward: outcome}, nil
}

// Thread returns a trend's comments oldest first with per-comment like
// counts and the viewer's like state.
func (s *Service) Thread(ctx context.Context, session identity.Session, trendID string) (*Thread, error) {
	if _, err := s.store.GetTrend(ctx, trendID); err != nil {
		return nil, fmt.Errorf("error getting trend %s: %w", trendID, err)
	}

	comments, err := s.store.FindComments(ctx, trendID)
	if err != nil {
		return nil, fmt.Errorf("error listing comments: %w", err)
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	liked := make(map[string]struct{})
	counts := make(map[string]int, len(ids))
	for _, batch := range chunk(ids, s.snapshots.Limit()) {
		snapshot, err := s.snapshots.Build(ctx, engagement.KindComment, batch, session.UserID)
		if err != nil {
			return nil, fmt.Errorf("error building comment snapshot: %w", err)
		}
		for id, c := range snapshot.Counts {
			counts[id] = c.Likes
		}
		for id := range snapshot.LikedByMe {
			liked[id] = struct{}{}
		}
	}

	thread := &Thread{TrendID: trendID, Comments: make([]ThreadComment, 0, len(comments))}
	for _, c := range comments {
		c.LikeCount = counts[c.ID]
		_, mine := liked[c.ID]
		thread.Comments = append(thread.Comments, ThreadComment{Comment: c, LikedByMe: mine})
	}

	return thread, nil
}

func (s *Service) publish(table, entityID, userID string) {
	if s.publisher == nil {
		return
	}

	change := realtime.Change{Table: table, Op: realtime.OpInsert, EntityID: entityID, UserID: userID, At: s.now()}
	if err := s.publisher.Publish(change); err != nil {
		s.logger.WithField("table", table).WithError(err).Warn("Failed to publish change")
	}
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) <= size {
		return [][]string{ids}
	}

	var batches [][]string
	for len(ids) > size {
		batches = append(batches, ids[:size])
		ids = ids[size:]
	}
	return append(batches, ids)
}
