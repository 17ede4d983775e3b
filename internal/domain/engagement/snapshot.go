package engagement

// Snapshot is a point-in-time aggregation of engagement counts and the
// viewer's membership over a batch of entities. It is derived, never stored.
type Snapshot struct {
	Kind      Kind                `json:"kind"`
	Counts    map[string]Counts   `json:"counts"`
	LikedByMe map[string]struct{} `json:"-"`
	SavedByMe map[string]struct{} `json:"-"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot(kind Kind) *Snapshot {
	return &Snapshot{
		Kind:      kind,
		Counts:    make(map[string]Counts),
		LikedByMe: make(map[string]struct{}),
		SavedByMe: make(map[string]struct{}),
	}
}

// Liked reports whether the viewer likes the entity
func (s *Snapshot) Liked(id string) bool {
	_, ok := s.LikedByMe[id]
	return ok
}

// Saved reports whether the viewer saved the entity
func (s *Snapshot) Saved(id string) bool {
	_, ok := s.SavedByMe[id]
	return ok
}

// Entry is the per-entity view of a snapshot
type Entry struct {
	ID    string `json:"id"`
	Liked bool   `json:"liked_by_me"`
	Saved bool   `json:"saved_by_me"`
	Counts
}

// Entries flattens the snapshot for the given ids, in order. Ids with no
// engagement rows get zero counts.
func (s *Snapshot) Entries(ids []string) []Entry {
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{
			ID:     id,
			Liked:  s.Liked(id),
			Saved:  s.Saved(id),
			Counts: s.Counts[id],
		})
	}
	return entries
}
