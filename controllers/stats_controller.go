package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// StatsController provides per-post thread statistics.
type StatsController struct {
	posts *services.PostService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{posts: services.NewPostService(db)}
}

// GetPostStats returns comment, top-level and vote counts for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	reqCtx, cancel := dbContext(ctx)
	defer cancel()

	stats, err := s.posts.Stats(reqCtx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
