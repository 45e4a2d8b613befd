package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/threadbbs/models"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.CommentVote{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPost(t *testing.T, db *gorm.DB, id string, userID uint) models.Post {
	t.Helper()
	if err := SyncAuthor(context.Background(), db, userID, fmt.Sprintf("user%d", userID)); err != nil {
		t.Fatalf("sync author: %v", err)
	}
	p := models.Post{ID: id, UserID: userID, Title: "title " + id, Content: "body"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func seedComment(t *testing.T, db *gorm.DB, id, postID, parentID string, userID uint, created time.Time) models.Comment {
	t.Helper()
	c := models.Comment{ID: id, PostID: postID, UserID: userID, Content: "comment " + id, CreatedAt: created}
	if parentID != "" {
		pid := parentID
		c.ParentID = &pid
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

func mustKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}
