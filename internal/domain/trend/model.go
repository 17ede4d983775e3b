package trend

import (
	"strings"
	"time"
)

// Location represents a geographic point
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are within WGS84 bounds
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Trend is a user-submitted, geo-taggable item of local interest.
// Coordinates is either nil or fully populated, never partial.
type Trend struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	Coordinates  *Location `json:"coordinates,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`

	// DistanceKm is only set by radius queries
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Comment is a reply attached to a trend
type Comment struct {
	ID        string    `json:"id"`
	TrendID   string    `json:"trend_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int       `json:"like_count"`
}

// Scope selects between global and radius-limited queries
type Scope struct {
	Center   *Location
	RadiusKm float64
}

// IsRadius reports whether the scope is limited to a radius around a center
func (s Scope) IsRadius() bool {
	return s.Center != nil && s.RadiusKm > 0
}

// Filter defines criteria for listing trends
type Filter struct {
	Scope    Scope
	City     string
	Query    string
	Category string
	Limit    int
}

// Matches applies the free-text and category filters to a trend
func (f Filter) Matches(t Trend) bool {
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}

	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Category), q) ||
		strings.Contains(strings.ToLower(t.Location), q)
}
