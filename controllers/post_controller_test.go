package controllers

import (
	"net/http"
	"testing"
)

func TestPostEndpoints(t *testing.T) {
	r := newTestRouter(newTestDB(t))
	alice := token(t, 1, "alice")
	bob := token(t, 2, "bob")

	code, env := do(t, r, http.MethodPost, "/api/v1/posts", alice, map[string]string{"title": ""})
	if code != http.StatusBadRequest || env.Code != 40020 {
		t.Fatalf("expected invalid payload, got %d %+v", code, env)
	}

	postID := createPost(t, r, alice)
	createComment(t, r, bob, postID, "", "hi")

	code, env = do(t, r, http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	if code != http.StatusOK {
		t.Fatalf("get: %d %+v", code, env)
	}
	var got struct {
		Post struct {
			ID           string `json:"id"`
			CommentCount int64  `json:"comment_count"`
			Author       struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"post"`
		ContentHTML string `json:"content_html"`
	}
	decode(t, env.Data, &got)
	if got.Post.ID != postID || got.Post.CommentCount != 1 || got.Post.Author.Username != "alice" {
		t.Fatalf("unexpected post %+v", got)
	}
	if got.ContentHTML == "" {
		t.Fatalf("expected rendered content")
	}

	code, _ = do(t, r, http.MethodDelete, "/api/v1/posts/"+postID, bob, nil)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	code, _ = do(t, r, http.MethodDelete, "/api/v1/posts/"+postID, alice, nil)
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	code, env = do(t, r, http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	if code != http.StatusNotFound || env.Error != "Post not found" {
		t.Fatalf("expected 404, got %d %+v", code, env)
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", 0, 0},
		{"2", "10", 2, 10},
		{"-1", "abc", 0, 0},
		{" 3 ", "500", 3, 500},
	}
	for _, tc := range cases {
		p, l := parsePagination(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Fatalf("parsePagination(%q,%q)=%d,%d want %d,%d", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLimit)
		}
	}
}
