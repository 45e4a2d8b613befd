package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// respondError maps a service error onto the HTTP status and business code of the envelope.
func respondError(ctx *gin.Context, err error) {
	switch services.KindOf(err) {
	case services.KindValidation:
		utils.Error(ctx, http.StatusBadRequest, 40030, services.MessageOf(err))
	case services.KindUnauthorized:
		utils.Error(ctx, http.StatusUnauthorized, 40130, services.MessageOf(err))
	case services.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40330, services.MessageOf(err))
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40430, services.MessageOf(err))
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50030, services.MessageOf(err))
	}
}

// dbContext bounds a database operation by the configured timeout.
func dbContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	seconds := config.Get().DBTimeoutSeconds
	if seconds <= 0 {
		seconds = 5
	}
	return context.WithTimeout(ctx.Request.Context(), time.Duration(seconds)*time.Second)
}

// parsePagination reads page and limit; invalid values become 0 and are defaulted by the service.
func parsePagination(pageStr, limitStr string) (int, int) {
	page, limit := 0, 0
	if p, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(strings.TrimSpace(limitStr)); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

func getUsername(ctx *gin.Context) string {
	v, _ := ctx.Get(middleware.ContextUsernameKey)
	s, _ := v.(string)
	return s
}

func isAdmin(ctx *gin.Context) bool {
	uname := strings.TrimSpace(getUsername(ctx))
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

// commentsCachePrefix scopes every cached page of one post's thread.
func commentsCachePrefix(postID string) string {
	return "cache:comments:post=" + postID + ":"
}

func commentsPageKey(postID string, gen int64, q services.ListQuery) string {
	return fmt.Sprintf("%sgen=%d:parent=%s:sort=%s:page=%d:limit=%d",
		commentsCachePrefix(postID), gen, q.ParentID, q.Sort, q.Page, q.Limit)
}

func commentsGenerationKey(postID string) string {
	return "cache:gen:comments:post=" + postID
}

// invalidateComments retires every cached page of the post. The generation bump keeps a
// list that read the database before the write from publishing its page afterwards.
func invalidateComments(postID string) {
	if postID == "" {
		return
	}
	utils.BumpGeneration(commentsGenerationKey(postID))
	utils.InvalidateByPrefix(commentsCachePrefix(postID))
}

func cacheTTL() time.Duration {
	return time.Duration(config.Get().CacheTTLSeconds) * time.Second
}
