package realtime

import (
	"time"
)

// Op is a change operation
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Tables that emit change notifications
const (
	TableTrends        = "trends"
	TableTrendLikes    = "trend_likes"
	TableTrendComments = "trend_comments"
	TableTrendSaves    = "trend_saves"
	TableCommentLikes  = "comment_likes"
)

// Change is a backend change notification for a single row
type Change struct {
	Table    string    `json:"table"`
	Op       Op        `json:"op"`
	EntityID string    `json:"entity_id"`
	UserID   string    `json:"user_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher emits change notifications
type Publisher interface {
	Publish(change Change) error
}

// Subscriber delivers change notifications for a table until unsubscribed
type Subscriber interface {
	Subscribe(table string, onChange func(Change)) (unsubscribe func(), err error)
}
