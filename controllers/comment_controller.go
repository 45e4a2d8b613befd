package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// CommentController serves comment threads and votes.
type CommentController struct {
	db       *gorm.DB
	comments *services.CommentService
	votes    *services.VoteService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	cfg := config.Get()
	return &CommentController{
		db: db,
		comments: services.NewCommentService(db, services.CommentOptions{
			MaxContentLength: cfg.CommentMaxLength,
			MaxPageLimit:     cfg.CommentMaxPageLimit,
		}),
		votes: services.NewVoteService(db),
	}
}

// ListComments returns one tier of a post's thread. The post id comes from the path
// (/posts/:id/comments) or from the post_id query parameter (/comments).
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID := strings.TrimSpace(ctx.Param("id"))
	if postID == "" {
		postID = strings.TrimSpace(ctx.Query("post_id"))
	}
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	viewerID, _ := getUserID(ctx)

	q := services.ListQuery{
		PostID:   postID,
		ParentID: strings.TrimSpace(ctx.Query("parent_id")),
		Sort:     services.ParseSort(ctx.Query("sort")),
		Page:     page,
		Limit:    limit,
		ViewerID: viewerID,
	}

	// Anonymous pages carry no per-viewer state and can be shared.
	// The generation is read before the database so a concurrent write retires this key.
	cacheKey := ""
	if viewerID == 0 && postID != "" {
		if gen, ok := utils.CacheGeneration(commentsGenerationKey(postID)); ok {
			cacheKey = commentsPageKey(postID, gen, q)
			if b, ok := utils.CacheGetBytes(cacheKey); ok {
				ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
				return
			}
		}
	}

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	result, err := c.comments.List(reqCtx, q)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: result}, cacheTTL())
	}
	utils.Success(ctx, result)
}

// GetComment returns a single comment.
func (c *CommentController) GetComment(ctx *gin.Context) {
	viewerID, _ := getUserID(ctx)
	reqCtx, cancel := dbContext(ctx)
	defer cancel()

	view, err := c.comments.Get(reqCtx, ctx.Param("commentId"), viewerID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comment": view})
}

// CreateComment adds a comment or a reply to a post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content  string `json:"content"`
		ParentID string `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "Authentication required")
		return
	}

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	if err := services.SyncAuthor(reqCtx, c.db, userID, getUsername(ctx)); err != nil {
		respondError(ctx, err)
		return
	}

	postID := ctx.Param("id")
	view, err := c.comments.Create(reqCtx, services.CreateInput{
		PostID:   postID,
		ParentID: req.ParentID,
		UserID:   userID,
		Content:  req.Content,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateComments(view.PostID)
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"comment": view})
}

// UpdateComment edits the caller's own comment.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	userID, _ := getUserID(ctx)

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	view, err := c.comments.Update(reqCtx, ctx.Param("commentId"), userID, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateComments(view.PostID)
	utils.Success(ctx, gin.H{"comment": view})
}

// DeleteComment removes a comment and its replies. Admins may delete any comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	userID, _ := getUserID(ctx)

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	postID, err := c.comments.Delete(reqCtx, ctx.Param("commentId"), userID, isAdmin(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateComments(postID)
	utils.Success(ctx, gin.H{"deleted": true})
}

// VoteComment records the caller's vote (1, -1, or 0 to retract) and returns the new aggregate.
func (c *CommentController) VoteComment(ctx *gin.Context) {
	var req struct {
		VoteType *int `json:"vote_type"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.VoteType == nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "Invalid vote type")
		return
	}
	userID, _ := getUserID(ctx)

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	result, err := c.votes.Cast(reqCtx, services.VoteInput{
		CommentID: ctx.Param("commentId"),
		UserID:    userID,
		VoteType:  *req.VoteType,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateComments(result.PostID)
	utils.Success(ctx, result)
}
