package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// PostController manages the posts that own comment threads.
type PostController struct {
	db    *gorm.DB
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db, posts: services.NewPostService(db)}
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required,min=1"`
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	if err := services.SyncAuthor(reqCtx, p.db, userID, getUsername(ctx)); err != nil {
		respondError(ctx, err)
		return
	}

	post, err := p.posts.Create(reqCtx, userID, req.Title, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"post": post})
}

// GetPost returns a single post with its author and comment count.
func (p *PostController) GetPost(ctx *gin.Context) {
	reqCtx, cancel := dbContext(ctx)
	defer cancel()

	post, err := p.posts.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"post":         post,
		"content_html": utils.RenderMarkdown(post.Content),
	})
}

// DeletePost removes a post along with its whole thread. Admins may delete any post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	postID := ctx.Param("id")

	reqCtx, cancel := dbContext(ctx)
	defer cancel()
	if err := p.posts.Delete(reqCtx, postID, userID, isAdmin(ctx)); err != nil {
		respondError(ctx, err)
		return
	}

	invalidateComments(postID)
	utils.Success(ctx, gin.H{"deleted": true})
}
