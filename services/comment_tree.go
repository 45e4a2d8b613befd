package services

import (
	"sort"
	"strings"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

// SortMode selects the ordering of a comment page.
type SortMode string

const (
	SortTop SortMode = "top"
	SortNew SortMode = "new"
	SortOld SortMode = "old"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// ParseSort maps a query value to a SortMode; unknown values fall back to SortTop.
func ParseSort(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortNew:
		return SortNew
	case SortOld:
		return SortOld
	default:
		return SortTop
	}
}

// ListQuery selects one tier of a post's comment thread.
// An empty ParentID selects top-level comments; ViewerID 0 is an anonymous reader.
type ListQuery struct {
	PostID   string
	ParentID string
	Sort     SortMode
	Page     int
	Limit    int
	ViewerID uint
}

// CommentView is a comment decorated for presentation.
type CommentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
	ReplyCount  int    `json:"reply_count"`
	UserVote    int    `json:"user_vote"`
	Liked       bool   `json:"liked"`
}

// Pagination describes the window returned in a CommentPage.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// CommentPage is the result of listing a tier of comments.
type CommentPage struct {
	Comments   []CommentView `json:"comments"`
	Pagination Pagination    `json:"pagination"`
}

// normalize fills defaults and clamps the limit to maxLimit (when positive).
func (q ListQuery) normalize(maxLimit int) ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	q.Sort = ParseSort(string(q.Sort))
	q.ParentID = strings.TrimSpace(q.ParentID)
	return q
}

// BuildPage reduces the full comment set of a post into one sorted, paginated tier.
// all must be every comment of the post so reply counts stay exact on every page;
// votes maps comment id to the viewer's vote. q must already be normalized.
func BuildPage(all []models.Comment, votes map[string]int, q ListQuery) CommentPage {
	filtered := filterTier(all, q.ParentID)
	sortComments(filtered, q.Sort)
	replies := ReplyCounts(all)

	start := len(filtered)
	if q.Page-1 <= len(filtered)/q.Limit {
		start = min((q.Page-1)*q.Limit, len(filtered))
	}
	end := start + min(q.Limit, len(filtered)-start)

	views := make([]CommentView, 0, end-start)
	for _, c := range filtered[start:end] {
		views = append(views, newCommentView(c, replies[c.ID], votes[c.ID]))
	}

	return CommentPage{
		Comments: views,
		Pagination: Pagination{
			Page:    q.Page,
			Limit:   q.Limit,
			HasMore: end < len(filtered),
		},
	}
}

// ReplyCounts counts direct children per comment id.
func ReplyCounts(all []models.Comment) map[string]int {
	counts := make(map[string]int, len(all))
	for i := range all {
		if !all[i].IsTopLevel() {
			counts[*all[i].ParentID]++
		}
	}
	return counts
}

func filterTier(all []models.Comment, parentID string) []models.Comment {
	out := make([]models.Comment, 0, len(all))
	for _, c := range all {
		if parentID == "" {
			if c.IsTopLevel() {
				out = append(out, c)
			}
			continue
		}
		if !c.IsTopLevel() && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

func sortComments(cs []models.Comment, mode SortMode) {
	var less func(a, b *models.Comment) bool
	switch mode {
	case SortNew:
		less = func(a, b *models.Comment) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	case SortOld:
		less = func(a, b *models.Comment) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	default:
		less = func(a, b *models.Comment) bool {
			if a.LikesCount != b.LikesCount {
				return a.LikesCount > b.LikesCount
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(cs, func(i, j int) bool { return less(&cs[i], &cs[j]) })
}

func newCommentView(c models.Comment, replies, vote int) CommentView {
	return CommentView{
		Comment:     c,
		ContentHTML: utils.RenderMarkdown(c.Content),
		ReplyCount:  replies,
		UserVote:    vote,
		Liked:       vote == models.VoteUp,
	}
}
