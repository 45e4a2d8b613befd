package models

import "time"

// Vote values accepted by the aggregator. VoteNone retracts and is never stored.
const (
	VoteDown = -1
	VoteNone = 0
	VoteUp   = 1
)

// CommentVote is a user's single live opinion on a comment. The composite primary key
// keeps at most one row per (user, comment).
type CommentVote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CommentID string    `gorm:"primaryKey;size:36;index" json:"comment_id"`
	VoteType  int       `gorm:"not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
