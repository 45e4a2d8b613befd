package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
)

// CommentOptions tunes comment validation and paging.
type CommentOptions struct {
	MaxContentLength int
	MaxPageLimit     int
}

// CommentService owns the comment thread of each post.
type CommentService struct {
	db   *gorm.DB
	opts CommentOptions
}

// NewCommentService creates a CommentService backed by db.
func NewCommentService(db *gorm.DB, opts CommentOptions) *CommentService {
	return &CommentService{db: db, opts: opts}
}

// CreateInput carries a new comment.
type CreateInput struct {
	PostID   string
	ParentID string
	UserID   uint
	Content  string
}

// List returns one tier of a post's comments, sorted and paginated, with exact reply counts
// and the viewer's vote state. An unknown post yields an empty page.
func (s *CommentService) List(ctx context.Context, q ListQuery) (*CommentPage, error) {
	q.PostID = strings.TrimSpace(q.PostID)
	if q.PostID == "" {
		return nil, ValidationError("Post ID is required")
	}
	q = q.normalize(s.opts.MaxPageLimit)

	db := s.db.WithContext(ctx)
	var all []models.Comment
	if err := db.Preload("User").Where("post_id = ?", q.PostID).Find(&all).Error; err != nil {
		return nil, InternalError("failed to load comments", err)
	}

	votes, err := s.viewerVotes(db, q.PostID, q.ViewerID)
	if err != nil {
		return nil, err
	}

	page := BuildPage(all, votes, q)
	return &page, nil
}

// viewerVotes loads every vote the viewer cast on the post's comments in one query.
func (s *CommentService) viewerVotes(db *gorm.DB, postID string, viewerID uint) (map[string]int, error) {
	votes := map[string]int{}
	if viewerID == 0 {
		return votes, nil
	}
	var rows []models.CommentVote
	err := db.Model(&models.CommentVote{}).
		Joins("JOIN comments ON comments.id = comment_votes.comment_id").
		Where("comments.post_id = ? AND comment_votes.user_id = ?", postID, viewerID).
		Select("comment_votes.comment_id, comment_votes.vote_type").
		Find(&rows).Error
	if err != nil {
		return nil, InternalError("failed to load votes", err)
	}
	for _, r := range rows {
		votes[r.CommentID] = r.VoteType
	}
	return votes, nil
}

// Get returns a single comment with its reply count and the viewer's vote.
func (s *CommentService) Get(ctx context.Context, commentID string, viewerID uint) (*CommentView, error) {
	db := s.db.WithContext(ctx)
	c, err := s.find(db.Preload("User"), commentID)
	if err != nil {
		return nil, err
	}

	var replies int64
	if err := db.Model(&models.Comment{}).Where("parent_id = ?", c.ID).Count(&replies).Error; err != nil {
		return nil, InternalError("failed to count replies", err)
	}

	vote := 0
	if viewerID != 0 {
		var v models.CommentVote
		err := db.Where("user_id = ? AND comment_id = ?", viewerID, c.ID).Take(&v).Error
		switch {
		case err == nil:
			vote = v.VoteType
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, InternalError("failed to load vote", err)
		}
	}

	view := newCommentView(*c, int(replies), vote)
	return &view, nil
}

// Create persists a new comment. A parent, when given, must exist on the same post.
func (s *CommentService) Create(ctx context.Context, in CreateInput) (*CommentView, error) {
	postID := strings.TrimSpace(in.PostID)
	if postID == "" {
		return nil, ValidationError("Post ID is required")
	}
	content, err := s.cleanContent(in.Content)
	if err != nil {
		return nil, err
	}
	if in.UserID == 0 {
		return nil, UnauthorizedError("Authentication required")
	}

	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.Select("id").Where("id = ?", postID).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Post not found")
		}
		return nil, InternalError("failed to load post", err)
	}

	comment := models.Comment{
		PostID:  postID,
		UserID:  in.UserID,
		Content: content,
	}
	if parentID := strings.TrimSpace(in.ParentID); parentID != "" {
		var parent models.Comment
		if err := db.Select("id", "post_id").Where("id = ?", parentID).Take(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundError("Parent comment not found")
			}
			return nil, InternalError("failed to load parent comment", err)
		}
		if parent.PostID != postID {
			return nil, ValidationError("Parent comment belongs to a different post")
		}
		comment.ParentID = &parent.ID
	}

	if err := db.Create(&comment).Error; err != nil {
		return nil, InternalError("failed to create comment", err)
	}
	if err := db.Preload("User").Where("id = ?", comment.ID).Take(&comment).Error; err != nil {
		return nil, InternalError("failed to load comment", err)
	}

	view := newCommentView(comment, 0, 0)
	return &view, nil
}

// Update replaces the content of a comment. Only its author may edit it.
func (s *CommentService) Update(ctx context.Context, commentID string, userID uint, content string) (*CommentView, error) {
	if userID == 0 {
		return nil, UnauthorizedError("Authentication required")
	}
	cleaned, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	c, err := s.find(db, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ForbiddenError("You can only edit your own comment")
	}
	if err := db.Model(c).Update("content", cleaned).Error; err != nil {
		return nil, InternalError("failed to update comment", err)
	}
	return s.Get(ctx, c.ID, userID)
}

// Delete removes a comment together with its whole reply subtree and every vote on them.
// It returns the post id so callers can invalidate derived views.
func (s *CommentService) Delete(ctx context.Context, commentID string, userID uint, isAdmin bool) (string, error) {
	if userID == 0 {
		return "", UnauthorizedError("Authentication required")
	}
	var postID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.find(tx, commentID)
		if err != nil {
			return err
		}
		if c.UserID != userID && !isAdmin {
			return ForbiddenError("You can only delete your own comment")
		}
		postID = c.PostID

		ids, err := subtreeIDs(tx, c.PostID, c.ID)
		if err != nil {
			return err
		}
		return deleteComments(tx, ids)
	})
	if err != nil {
		return "", asServiceError("failed to delete comment", err)
	}
	return postID, nil
}

func (s *CommentService) find(db *gorm.DB, commentID string) (*models.Comment, error) {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return nil, ValidationError("Comment ID is required")
	}
	var c models.Comment
	if err := db.Where("id = ?", commentID).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Comment not found")
		}
		return nil, InternalError("failed to load comment", err)
	}
	return &c, nil
}

func (s *CommentService) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ValidationError("Content is required")
	}
	if s.opts.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.opts.MaxContentLength {
		return "", ValidationError("Content is too long")
	}
	return content, nil
}

// subtreeIDs returns rootID and every descendant, using one query for the post's parent links.
func subtreeIDs(tx *gorm.DB, postID, rootID string) ([]string, error) {
	var links []models.Comment
	if err := tx.Select("id", "parent_id").Where("post_id = ?", postID).Find(&links).Error; err != nil {
		return nil, InternalError("failed to load comment tree", err)
	}
	children := make(map[string][]string, len(links))
	for _, l := range links {
		if !l.IsTopLevel() {
			children[*l.ParentID] = append(children[*l.ParentID], l.ID)
		}
	}

	ids := []string{rootID}
	seen := map[string]bool{rootID: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if !seen[child] {
				seen[child] = true
				ids = append(ids, child)
			}
		}
	}
	return ids, nil
}

func deleteComments(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentVote{}).Error; err != nil {
		return InternalError("failed to delete votes", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return InternalError("failed to delete comments", err)
	}
	return nil
}
