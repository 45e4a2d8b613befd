package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/threadbbs/models"
)

// VoteInput is one user's vote on one comment.
type VoteInput struct {
	CommentID string
	UserID    uint
	VoteType  int
}

// VoteResult reports the comment's aggregate after a vote has been committed.
type VoteResult struct {
	Success    bool   `json:"success"`
	CommentID  string `json:"comment_id"`
	PostID     string `json:"post_id"`
	VoteType   int    `json:"vote_type"`
	LikesCount int    `json:"likes_count"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
}

type voteTally struct {
	Score int
	Up    int
	Down  int
}

// VoteService records votes and keeps each comment's aggregate equal to the sum of its live votes.
type VoteService struct {
	db *gorm.DB
}

// NewVoteService creates a VoteService backed by db.
func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// ValidVoteType reports whether v is one of -1, 0 or 1.
func ValidVoteType(v int) bool {
	return v == models.VoteDown || v == models.VoteNone || v == models.VoteUp
}

// Cast upserts the caller's vote (0 retracts it) and recomputes the comment aggregate in the
// same transaction. The comment row is locked first so concurrent voters serialize.
func (s *VoteService) Cast(ctx context.Context, in VoteInput) (*VoteResult, error) {
	if !ValidVoteType(in.VoteType) {
		return nil, ValidationError("Invalid vote type")
	}
	if in.UserID == 0 {
		return nil, UnauthorizedError("Authentication required")
	}
	commentID := strings.TrimSpace(in.CommentID)
	if commentID == "" {
		return nil, ValidationError("Comment ID is required")
	}

	var result *VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "post_id").
			Where("id = ?", commentID).
			Take(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Comment not found")
			}
			return InternalError("failed to load comment", err)
		}

		if in.VoteType == models.VoteNone {
			err = tx.Where("user_id = ? AND comment_id = ?", in.UserID, commentID).
				Delete(&models.CommentVote{}).Error
		} else {
			now := time.Now()
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "comment_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"vote_type": in.VoteType, "updated_at": now}),
			}).Create(&models.CommentVote{
				UserID:    in.UserID,
				CommentID: commentID,
				VoteType:  in.VoteType,
				CreatedAt: now,
				UpdatedAt: now,
			}).Error
		}
		if err != nil {
			return InternalError("failed to record vote", err)
		}

		tally, err := recomputeAggregate(tx, commentID)
		if err != nil {
			return err
		}
		result = &VoteResult{
			Success:    true,
			CommentID:  commentID,
			PostID:     comment.PostID,
			VoteType:   in.VoteType,
			LikesCount: tally.Score,
			Upvotes:    tally.Up,
			Downvotes:  tally.Down,
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError("failed to cast vote", err)
	}
	return result, nil
}

// recomputeAggregate derives the comment's counters from its vote rows and stores them.
func recomputeAggregate(tx *gorm.DB, commentID string) (voteTally, error) {
	var t voteTally
	err := tx.Model(&models.CommentVote{}).
		Select("COALESCE(SUM(vote_type), 0) AS score, "+
			"COALESCE(SUM(CASE WHEN vote_type > 0 THEN 1 ELSE 0 END), 0) AS up, "+
			"COALESCE(SUM(CASE WHEN vote_type < 0 THEN 1 ELSE 0 END), 0) AS down").
		Where("comment_id = ?", commentID).
		Scan(&t).Error
	if err != nil {
		return t, InternalError("failed to tally votes", err)
	}

	err = tx.Model(&models.Comment{}).
		Where("id = ?", commentID).
		UpdateColumns(map[string]interface{}{
			"likes_count": t.Score,
			"upvotes":     t.Up,
			"downvotes":   t.Down,
		}).Error
	if err != nil {
		return t, InternalError("failed to update comment score", err)
	}
	return t, nil
}
