package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

// PostService manages the posts that own comment threads.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a PostService backed by db.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// PostView is a post with its comment count.
type PostView struct {
	models.Post
	CommentCount int64 `json:"comment_count"`
}

// PostStats summarizes the activity in a post's thread.
type PostStats struct {
	CommentsCount int64 `json:"comments_count"`
	TopLevelCount int64 `json:"top_level_count"`
	VotesCount    int64 `json:"votes_count"`
}

// Create stores a new post authored by userID.
func (s *PostService) Create(ctx context.Context, userID uint, title, content string) (*models.Post, error) {
	if userID == 0 {
		return nil, UnauthorizedError("Authentication required")
	}
	title = utils.Sanitize(strings.TrimSpace(title))
	if title == "" {
		return nil, ValidationError("Title is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ValidationError("Content is required")
	}

	post := models.Post{UserID: userID, Title: title, Content: content}
	db := s.db.WithContext(ctx)
	if err := db.Create(&post).Error; err != nil {
		return nil, InternalError("failed to create post", err)
	}
	if err := db.Preload("User").Where("id = ?", post.ID).Take(&post).Error; err != nil {
		return nil, InternalError("failed to load post", err)
	}
	return &post, nil
}

// Get returns a post with its comment count.
func (s *PostService) Get(ctx context.Context, postID string) (*PostView, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, ValidationError("Post ID is required")
	}
	db := s.db.WithContext(ctx)
	var view PostView
	if err := db.Preload("User").Where("id = ?", postID).Take(&view.Post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Post not found")
		}
		return nil, InternalError("failed to load post", err)
	}
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&view.CommentCount).Error; err != nil {
		return nil, InternalError("failed to count comments", err)
	}
	return &view, nil
}

// Delete removes a post, all of its comments and every vote on them in one transaction.
func (s *PostService) Delete(ctx context.Context, postID string, userID uint, isAdmin bool) error {
	if userID == 0 {
		return UnauthorizedError("Authentication required")
	}
	postID = strings.TrimSpace(postID)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ?", postID).Take(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Post not found")
			}
			return InternalError("failed to load post", err)
		}
		if post.UserID != userID && !isAdmin {
			return ForbiddenError("You can only delete your own posts")
		}

		var ids []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error; err != nil {
			return InternalError("failed to load comments", err)
		}
		if err := deleteComments(tx, ids); err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return InternalError("failed to delete post", err)
		}
		return nil
	})
	return asServiceError("failed to delete post", err)
}

// Stats counts comments, top-level comments and live votes of a post.
func (s *PostService) Stats(ctx context.Context, postID string) (*PostStats, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, ValidationError("Post ID is required")
	}
	db := s.db.WithContext(ctx)
	var st PostStats
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&st.CommentsCount).Error; err != nil {
		return nil, InternalError("failed to count comments", err)
	}
	if err := db.Model(&models.Comment{}).Where("post_id = ? AND parent_id IS NULL", postID).Count(&st.TopLevelCount).Error; err != nil {
		return nil, InternalError("failed to count top-level comments", err)
	}
	err := db.Model(&models.CommentVote{}).
		Joins("JOIN comments ON comments.id = comment_votes.comment_id").
		Where("comments.post_id = ?", postID).
		Count(&st.VotesCount).Error
	if err != nil {
		return nil, InternalError("failed to count votes", err)
	}
	return &st, nil
}
