package engagement

import (
	"context"
	"fmt"
	"sync"

	"locova/internal/domain/engagement"
)

// SnapshotBuilder aggregates raw like, comment and save rows into a snapshot
type SnapshotBuilder struct {
	store  engagement.Store
	maxIDs int
}

// NewSnapshotBuilder creates a new snapshot builder. maxIDs bounds the batch
// size; zero or less disables the bound.
func NewSnapshotBuilder(store engagement.Store, maxIDs int) *SnapshotBuilder {
	return &SnapshotBuilder{
		store:  store,
		maxIDs: maxIDs,
	}
}

// Build computes the snapshot for ids as seen by viewerID (empty for
// anonymous). If any batch read fails, no snapshot is returned.
func (b *SnapshotBuilder) Build(ctx context.Context, kind engagement.Kind, ids []string, viewerID string) (*engagement.Snapshot, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", engagement.ErrInvalidInput, kind)
	}

	ids = dedupe(ids)
	snapshot := engagement.NewSnapshot(kind)
	if len(ids) == 0 {
		return snapshot, nil
	}
	if b.maxIDs > 0 && len(ids) > b.maxIDs {
		return nil, fmt.Errorf("%w: %d ids exceeds batch limit of %d", engagement.ErrInvalidInput, len(ids), b.maxIDs)
	}

	for _, id := range ids {
		snapshot.Counts[id] = engagement.Counts{}
	}

	var (
		likes, comments, saves []engagement.Row
		likesErr, commentsErr  error
		savesErr               error
		wg                     sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		likes, likesErr = b.store.LikeRows(ctx, kind, ids)
	}()

	// Comments have likes only
	if kind == engagement.KindTrend {
		wg.Add(2)
		go func() {
			defer wg.Done()
			comments, commentsErr = b.store.CommentRows(ctx, ids)
		}()
		go func() {
			defer wg.Done()
			saves, savesErr = b.store.SaveRows(ctx, ids)
		}()
	}

	wg.Wait()

	if likesErr != nil {
		return nil, fmt.Errorf("error reading likes: %w", likesErr)
	}
	if commentsErr != nil {
		return nil, fmt.Errorf("error reading comments: %w", commentsErr)
	}
	if savesErr != nil {
		return nil, fmt.Errorf("error reading saves: %w", savesErr)
	}

	for _, row := range likes {
		c := snapshot.Counts[row.EntityID]
		c.Likes++
		snapshot.Counts[row.EntityID] = c
		if viewerID != "" && row.UserID == viewerID {
			snapshot.LikedByMe[row.EntityID] = struct{}{}
		}
	}

	for _, row := range comments {
		c := snapshot.Counts[row.EntityID]
		c.Comments++
		snapshot.Counts[row.EntityID] = c
	}

	for _, row := range saves {
		c := snapshot.Counts[row.EntityID]
		c.Saves++
		snapshot.Counts[row.EntityID] = c
		if viewerID != "" && row.UserID == viewerID {
			snapshot.SavedByMe[row.EntityID] = struct{}{}
		}
	}

	return snapshot, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Limit returns the largest batch Build accepts, or zero when unbounded
func (b *SnapshotBuilder) Limit() int {
	return b.maxIDs
}
