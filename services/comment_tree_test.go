package services

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cppla/threadbbs/models"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func comment(id, parent string, likes int, minute int) models.Comment {
	c := models.Comment{ID: id, PostID: "p1", Content: id, LikesCount: likes, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
	if parent != "" {
		p := parent
		c.ParentID = &p
	}
	return c
}

func ids(page CommentPage) []string {
	out := make([]string, 0, len(page.Comments))
	for _, c := range page.Comments {
		out = append(out, c.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildPageTopLevelWithReplyCounts(t *testing.T) {
	all := []models.Comment{
		comment("c1", "", 0, 0),
		comment("c2", "", 5, 1),
		comment("c3", "c1", 0, 2),
	}
	q := ListQuery{PostID: "p1"}.normalize(100)
	page := BuildPage(all, map[string]int{"c2": 1}, q)

	if got := ids(page); !equalIDs(got, []string{"c2", "c1"}) {
		t.Fatalf("expected [c2 c1], got %v", got)
	}
	if page.Comments[1].ReplyCount != 1 || page.Comments[0].ReplyCount != 0 {
		t.Fatalf("unexpected reply counts: c2=%d c1=%d", page.Comments[0].ReplyCount, page.Comments[1].ReplyCount)
	}
	if !page.Comments[0].Liked || page.Comments[0].UserVote != 1 {
		t.Fatalf("expected viewer vote on c2")
	}
	if page.Comments[1].Liked || page.Comments[1].UserVote != 0 {
		t.Fatalf("expected no viewer vote on c1")
	}
	if page.Pagination.HasMore {
		t.Fatalf("expected hasMore=false")
	}
}

func TestBuildPageRepliesTier(t *testing.T) {
	all := []models.Comment{
		comment("c1", "", 0, 0),
		comment("c3", "c1", 0, 2),
		comment("c4", "c1", 0, 3),
		comment("c5", "c3", 0, 4),
	}
	q := ListQuery{PostID: "p1", ParentID: "c1", Sort: SortOld}.normalize(100)
	page := BuildPage(all, nil, q)
	if got := ids(page); !equalIDs(got, []string{"c3", "c4"}) {
		t.Fatalf("expected [c3 c4], got %v", got)
	}
	if page.Comments[0].ReplyCount != 1 {
		t.Fatalf("expected c3 to have one reply, got %d", page.Comments[0].ReplyCount)
	}
}

func TestBuildPagePagingIsComplete(t *testing.T) {
	var all []models.Comment
	for i := 0; i < 23; i++ {
		all = append(all, comment(fmt.Sprintf("c%02d", i), "", i%4, i))
	}
	// replies to make sure they never leak into the top tier
	all = append(all, comment("r1", "c00", 9, 50), comment("r2", "c05", 9, 51))

	for _, mode := range []SortMode{SortTop, SortNew, SortOld} {
		seen := map[string]bool{}
		var concat []string
		for page := 1; ; page++ {
			q := ListQuery{PostID: "p1", Sort: mode, Page: page, Limit: 5}.normalize(100)
			p := BuildPage(all, nil, q)
			concat = append(concat, ids(p)...)
			if !p.Pagination.HasMore {
				break
			}
			if page > 10 {
				t.Fatalf("%s: paging did not terminate", mode)
			}
		}
		if len(concat) != 23 {
			t.Fatalf("%s: expected 23 comments across pages, got %d", mode, len(concat))
		}
		for _, id := range concat {
			if seen[id] {
				t.Fatalf("%s: %s returned twice", mode, id)
			}
			seen[id] = true
		}

		full := BuildPage(all, nil, ListQuery{PostID: "p1", Sort: mode, Limit: 100}.normalize(100))
		if !equalIDs(concat, ids(full)) {
			t.Fatalf("%s: paged order differs from full order", mode)
		}
	}
}

func TestBuildPageReplyCountsIndependentOfPageAndSort(t *testing.T) {
	all := []models.Comment{
		comment("a", "", 1, 0),
		comment("b", "", 2, 1),
		comment("c", "", 3, 2),
		comment("a1", "a", 0, 3),
		comment("a2", "a", 0, 4),
		comment("c1", "c", 0, 5),
	}
	want := map[string]int{"a": 2, "b": 0, "c": 1}
	for _, mode := range []SortMode{SortTop, SortNew, SortOld} {
		for page := 1; page <= 3; page++ {
			p := BuildPage(all, nil, ListQuery{PostID: "p1", Sort: mode, Page: page, Limit: 1}.normalize(100))
			for _, c := range p.Comments {
				if c.ReplyCount != want[c.ID] {
					t.Fatalf("%s page %d: %s reply count %d, want %d", mode, page, c.ID, c.ReplyCount, want[c.ID])
				}
			}
		}
	}
}

func TestBuildPageNewIsReverseOfOld(t *testing.T) {
	all := []models.Comment{
		comment("x", "", 0, 3),
		comment("y", "", 0, 1),
		comment("z", "", 0, 2),
	}
	newest := ids(BuildPage(all, nil, ListQuery{PostID: "p1", Sort: SortNew}.normalize(100)))
	oldest := ids(BuildPage(all, nil, ListQuery{PostID: "p1", Sort: SortOld}.normalize(100)))
	if !equalIDs(newest, []string{"x", "z", "y"}) {
		t.Fatalf("unexpected new order %v", newest)
	}
	for i := range newest {
		if newest[i] != oldest[len(oldest)-1-i] {
			t.Fatalf("new %v is not the reverse of old %v", newest, oldest)
		}
	}
}

func TestBuildPageTopTieBreak(t *testing.T) {
	all := []models.Comment{
		comment("b", "", 2, 0),
		comment("a", "", 2, 0),
		comment("c", "", 2, 5),
	}
	got := ids(BuildPage(all, nil, ListQuery{PostID: "p1"}.normalize(100)))
	if !equalIDs(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected [c a b], got %v", got)
	}
}

func TestParseSortFallsBackToTop(t *testing.T) {
	cases := map[string]SortMode{"": SortTop, "TOP": SortTop, " new ": SortNew, "old": SortOld, "random": SortTop}
	for in, want := range cases {
		if got := ParseSort(in); got != want {
			t.Fatalf("ParseSort(%q)=%s, want %s", in, got, want)
		}
	}
}

func TestNormalizeDefaultsAndClamp(t *testing.T) {
	q := ListQuery{Page: -3, Limit: 0, Sort: "weird"}.normalize(100)
	if q.Page != DefaultPage || q.Limit != DefaultLimit || q.Sort != SortTop {
		t.Fatalf("unexpected defaults %+v", q)
	}
	q = ListQuery{Page: 2, Limit: 1000}.normalize(100)
	if q.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", q.Limit)
	}
}

func TestBuildPageHasMoreAndOutOfRange(t *testing.T) {
	all := []models.Comment{comment("a", "", 0, 0), comment("b", "", 0, 1), comment("c", "", 0, 2)}

	p := BuildPage(all, nil, ListQuery{PostID: "p1", Page: 1, Limit: 2}.normalize(100))
	if len(p.Comments) != 2 || !p.Pagination.HasMore {
		t.Fatalf("page 1: expected 2 comments and hasMore, got %d %v", len(p.Comments), p.Pagination.HasMore)
	}
	p = BuildPage(all, nil, ListQuery{PostID: "p1", Page: 2, Limit: 2}.normalize(100))
	if len(p.Comments) != 1 || p.Pagination.HasMore {
		t.Fatalf("page 2: expected 1 comment and no more, got %d %v", len(p.Comments), p.Pagination.HasMore)
	}
	p = BuildPage(all, nil, ListQuery{PostID: "p1", Page: 1 << 40, Limit: 2}.normalize(100))
	if len(p.Comments) != 0 || p.Pagination.HasMore {
		t.Fatalf("far page: expected empty page, got %d", len(p.Comments))
	}
	p = BuildPage(nil, nil, ListQuery{PostID: "p1"}.normalize(100))
	if p.Comments == nil || len(p.Comments) != 0 {
		t.Fatalf("empty thread should yield an empty, non-nil slice")
	}
}

func TestCommentViewRendersSanitizedMarkdown(t *testing.T) {
	c := comment("m", "", 0, 0)
	c.Content = "**bold** <script>alert(1)</script>"
	v := newCommentView(c, 0, -1)
	if v.Liked || v.UserVote != -1 {
		t.Fatalf("downvote must not count as liked")
	}
	if want := "<strong>bold</strong>"; !strings.Contains(v.ContentHTML, want) {
		t.Fatalf("expected %q in %q", want, v.ContentHTML)
	}
	if strings.Contains(v.ContentHTML, "<script>") {
		t.Fatalf("script tag survived sanitizing: %q", v.ContentHTML)
	}
}

func TestBuildPageHugeLimitWithoutClamp(t *testing.T) {
	all := []models.Comment{comment("a", "", 0, 0), comment("b", "", 0, 1)}

	for page := 1; page <= 3; page++ {
		q := ListQuery{PostID: "p1", Page: page, Limit: math.MaxInt}.normalize(0)
		p := BuildPage(all, nil, q)
		want := 0
		if page == 1 {
			want = 2
		}
		if len(p.Comments) != want || p.Pagination.HasMore {
			t.Fatalf("page %d: got %d comments hasMore=%v, want %d", page, len(p.Comments), p.Pagination.HasMore, want)
		}
	}
}
