package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"locova/internal/domain/engagement"
	"locova/internal/domain/gamification"
	"locova/internal/domain/geo"
	"locova/internal/domain/trend"
)

type pair struct {
	entityID string
	userID   string
}

// Store is an in-memory backend implementing every store contract. It is
// used for local development and tests.
type Store struct {
	trends       map[string]trend.Trend
	comments     map[string]trend.Comment
	trendLikes   map[pair]uint64
	commentLikes map[pair]uint64
	saves        map[pair]uint64
	ledger       map[gamification.LedgerKey]struct{}
	profiles     map[string]gamification.Profile
	trendSeq     map[string]uint64
	commentSeq   map[string]uint64
	seq          uint64
	now          func() time.Time
	mutex        sync.RWMutex
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		trends:       make(map[string]trend.Trend),
		comments:     make(map[string]trend.Comment),
		trendLikes:   make(map[pair]uint64),
		commentLikes: make(map[pair]uint64),
		saves:        make(map[pair]uint64),
		ledger:       make(map[gamification.LedgerKey]struct{}),
		profiles:     make(map[string]gamification.Profile),
		trendSeq:     make(map[string]uint64),
		commentSeq:   make(map[string]uint64),
		now:          time.Now,
	}
}

// CreateTrend inserts a new trend
func (s *Store) CreateTrend(ctx context.Context, t trend.Trend) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.seq++
	s.trends[t.ID] = t
	s.trendSeq[t.ID] = s.seq
	return nil
}

// GetTrend retrieves a trend by ID
func (s *Store) GetTrend(ctx context.Context, id string) (*trend.Trend, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.trends[id]
	if !ok {
		return nil, trend.ErrNotFound
	}
	t = s.withCounters(t)
	return &t, nil
}

// FindTrends returns trends newest first, optionally filtered by city
func (s *Store) FindTrends(ctx context.Context, city string, limit int) ([]trend.Trend, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	city = strings.ToLower(strings.TrimSpace(city))

	var trends []trend.Trend
	for _, t := range s.trends {
		if city != "" && !strings.Contains(strings.ToLower(t.Location), city) {
			continue
		}
		trends = append(trends, s.withCounters(t))
	}

	sort.Slice(trends, func(i, j int) bool {
		return s.newer(trends[i], trends[j])
	})

	return truncate(trends, limit), nil
}

// FindTrendsWithinRadius returns trends within radiusKm of center, nearest first
func (s *Store) FindTrendsWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]trend.Trend, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var trends []trend.Trend
	for _, t := range s.trends {
		if t.Coordinates == nil {
			continue
		}
		distance := geo.Distance(*t.Coordinates, center)
		if distance > radiusKm {
			continue
		}
		t = s.withCounters(t)
		t.DistanceKm = &distance
		trends = append(trends, t)
	}

	sort.Slice(trends, func(i, j int) bool {
		return *trends[i].DistanceKm < *trends[j].DistanceKm
	})

	return truncate(trends, limit), nil
}

// FindRecommended returns trends ordered by like count then recency
func (s *Store) FindRecommended(ctx context.Context, limit int) ([]trend.Trend, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	trends := make([]trend.Trend, 0, len(s.trends))
	for _, t := range s.trends {
		trends = append(trends, s.withCounters(t))
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].LikeCount != trends[j].LikeCount {
			return trends[i].LikeCount > trends[j].LikeCount
		}
		return s.newer(trends[i], trends[j])
	})

	return truncate(trends, limit), nil
}

// FindSavedTrends returns trends saved by a user, most recently saved first
func (s *Store) FindSavedTrends(ctx context.Context, userID string) ([]trend.Trend, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	type saved struct {
		t   trend.Trend
		seq uint64
	}

	var items []saved
	for p, seq := range s.saves {
		if p.userID != userID {
			continue
		}
		if t, ok := s.trends[p.entityID]; ok {
			items = append(items, saved{t: s.withCounters(t), seq: seq})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].seq > items[j].seq
	})

	trends := make([]trend.Trend, len(items))
	for i, item := range items {
		trends[i] = item.t
	}
	return trends, nil
}

// CreateComment inserts a new comment
func (s *Store) CreateComment(ctx context.Context, c trend.Comment) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.trends[c.TrendID]; !ok {
		return trend.ErrNotFound
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.seq++
	s.comments[c.ID] = c
	s.commentSeq[c.ID] = s.seq
	return nil
}

// FindComments returns the comments of a trend, oldest first
func (s *Store) FindComments(ctx context.Context, trendID string) ([]trend.Comment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	comments := []trend.Comment{}
	for _, c := range s.comments {
		if c.TrendID != trendID {
			continue
		}
		c.LikeCount = countEntity(s.commentLikes, c.ID)
		comments = append(comments, c)
	}

	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return s.commentSeq[comments[i].ID] < s.commentSeq[comments[j].ID]
	})

	return comments, nil
}

// ToggleLike inserts the like if absent or deletes it if present
func (s *Store) ToggleLike(ctx context.Context, kind engagement.Kind, entityID, userID string) (engagement.ToggleResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if kind == engagement.KindComment {
		if _, ok := s.comments[entityID]; !ok {
			return "", trend.ErrNotFound
		}
		return s.toggle(s.commentLikes, entityID, userID), nil
	}

	if _, ok := s.trends[entityID]; !ok {
		return "", trend.ErrNotFound
	}
	return s.toggle(s.trendLikes, entityID, userID), nil
}

// ToggleSave inserts the save if absent or deletes it if present
func (s *Store) ToggleSave(ctx context.Context, trendID, userID string) (engagement.ToggleResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.trends[trendID]; !ok {
		return "", trend.ErrNotFound
	}
	return s.toggle(s.saves, trendID, userID), nil
}

func (s *Store) toggle(rows map[pair]uint64, entityID, userID string) engagement.ToggleResult {
	key := pair{entityID: entityID, userID: userID}
	if _, ok := rows[key]; ok {
		delete(rows, key)
		return engagement.Deactivated
	}
	s.seq++
	rows[key] = s.seq
	return engagement.Activated
}

// LikeRows returns every like row for the given entity ids
func (s *Store) LikeRows(ctx context.Context, kind engagement.Kind, ids []string) ([]engagement.Row, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if kind == engagement.KindComment {
		return rowsFor(s.commentLikes, ids), nil
	}
	return rowsFor(s.trendLikes, ids), nil
}

// CommentRows returns (trend, author) rows for every comment on the given trends
func (s *Store) CommentRows(ctx context.Context, trendIDs []string) ([]engagement.Row, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	wanted := toSet(trendIDs)
	var rows []engagement.Row
	for _, c := range s.comments {
		if _, ok := wanted[c.TrendID]; ok {
			rows = append(rows, engagement.Row{EntityID: c.TrendID, UserID: c.UserID})
		}
	}
	return rows, nil
}

// SaveRows returns every save row for the given trends
func (s *Store) SaveRows(ctx context.Context, trendIDs []string) ([]engagement.Row, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return rowsFor(s.saves, trendIDs), nil
}

// HasEntry reports whether a ledger row exists for key
func (s *Store) HasEntry(ctx context.Context, key gamification.LedgerKey) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.ledger[key]
	return ok, nil
}

// Insert claims the reward for key
func (s *Store) Insert(ctx context.Context, key gamification.LedgerKey) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.ledger[key]; ok {
		return gamification.ErrLedgerConflict
	}
	s.ledger[key] = struct{}{}
	return nil
}

// IncrementPoints adds amount to the user's points, creating the profile if needed
func (s *Store) IncrementPoints(ctx context.Context, userID string, amount int) (*int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = gamification.Profile{ID: userID, CreatedAt: s.now()}
	}
	p.Points += amount
	s.profiles[userID] = p

	total := p.Points
	return &total, nil
}

// GetProfile retrieves a profile by user ID
func (s *Store) GetProfile(ctx context.Context, userID string) (*gamification.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, gamification.ErrNotFound
	}
	return &p, nil
}

// UpsertProfile creates or updates a profile's display fields. Points are
// never changed here.
func (s *Store) UpsertProfile(ctx context.Context, p gamification.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		existing = gamification.Profile{ID: p.ID, CreatedAt: s.now()}
	}
	if p.DisplayName != nil {
		existing.DisplayName = p.DisplayName
	}
	if p.AvatarURL != nil {
		existing.AvatarURL = p.AvatarURL
	}
	s.profiles[p.ID] = existing
	return nil
}

// TopGlobal returns the top users by points
func (s *Store) TopGlobal(ctx context.Context, limit int) ([]gamification.LeaderboardRow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.rank(func(string) bool { return true }, limit), nil
}

// TopWithinRadius returns the top users among authors of trends within radiusKm of center
func (s *Store) TopWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]gamification.LeaderboardRow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	local := make(map[string]struct{})
	for _, t := range s.trends {
		if t.UserID != "" && t.Coordinates != nil && geo.IsWithinBounds(*t.Coordinates, center, radiusKm) {
			local[t.UserID] = struct{}{}
		}
	}

	return s.rank(func(userID string) bool {
		_, ok := local[userID]
		return ok
	}, limit), nil
}

func (s *Store) rank(include func(userID string) bool, limit int) []gamification.LeaderboardRow {
	rows := []gamification.LeaderboardRow{}
	for _, p := range s.profiles {
		if !include(p.ID) {
			continue
		}
		rows = append(rows, gamification.LeaderboardRow{
			UserID:      p.ID,
			Points:      p.Points,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].UserID < rows[j].UserID
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// newer orders by creation time, falling back to insertion order
func (s *Store) newer(a, b trend.Trend) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return s.trendSeq[a.ID] > s.trendSeq[b.ID]
}

func (s *Store) withCounters(t trend.Trend) trend.Trend {
	t.LikeCount = countEntity(s.trendLikes, t.ID)
	t.CommentCount = 0
	for _, c := range s.comments {
		if c.TrendID == t.ID {
			t.CommentCount++
		}
	}
	return t
}

func countEntity(rows map[pair]uint64, entityID string) int {
	n := 0
	for p := range rows {
		if p.entityID == entityID {
			n++
		}
	}
	return n
}

func rowsFor(rows map[pair]uint64, ids []string) []engagement.Row {
	wanted := toSet(ids)
	var out []engagement.Row
	for p := range rows {
		if _, ok := wanted[p.entityID]; ok {
			out = append(out, engagement.Row{EntityID: p.entityID, UserID: p.userID})
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func truncate(trends []trend.Trend, limit int) []trend.Trend {
	if trends == nil {
		trends = []trend.Trend{}
	}
	if limit > 0 && len(trends) > limit {
		return trends[:limit]
	}
	return trends
}
