package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/threadbbs/models"
)

// SyncAuthor mirrors the identity from a verified token into the users table so comments
// and posts can be rendered with author metadata. Profile fields other than the username
// are left untouched.
func SyncAuthor(ctx context.Context, db *gorm.DB, userID uint, username string) error {
	if userID == 0 {
		return UnauthorizedError("Authentication required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "user"
	}
	now := time.Now()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"username": username, "updated_at": now}),
	}).Create(&models.User{ID: userID, Username: username, CreatedAt: now, UpdatedAt: now}).Error
	if err != nil {
		return InternalError("failed to sync author", err)
	}
	return nil
}
