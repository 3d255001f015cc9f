package content

import (
	"context"
	"errors"
	"testing"

	"github.com/eringen/dossier/store"
)

func TestCreatePostDerivesKeyFromTitle(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	p := mustCreatePost(t, s, "Kennedy Ogeto: NMS Clarification!!", "2024-03-01")

	if p.PostID != "kennedy-ogeto-nms-clarification" {
		t.Errorf("PostID = %q", p.PostID)
	}
	if p.Slug != p.PostID {
		t.Errorf("Slug = %q, want %q", p.Slug, p.PostID)
	}
	if p.IsArchived {
		t.Error("new post should not be archived")
	}
	if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", p.CreatedAt, p.UpdatedAt)
	}
	if p.ReadingTime != "1 min read" || p.WordCount != 2 {
		t.Errorf("reading time = %q, words = %d", p.ReadingTime, p.WordCount)
	}
	if p.Author != "Research Team" {
		t.Errorf("Author = %q", p.Author)
	}
	if p.Tags == nil || p.Sources == nil {
		t.Error("lists should be empty, not nil")
	}

	got, err := s.GetPost(context.Background(), p.PostID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Kennedy Ogeto: NMS Clarification!!" || got.Category != "Election Law" {
		t.Errorf("GetPost = %+v", got)
	}
}

func TestCreatePostValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cases := []PostInput{
		{},
		{Title: Str("   ")},
		{Title: Str("!!!")},
		{Title: Str("Fine"), PublicationDate: Str("yesterday")},
	}
	for i, in := range cases {
		if _, err := s.CreatePost(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: got %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	s, _ := newTestService(t)
	mustCreatePost(t, s, "Same Title", "2024-01-01")
	_, err := s.CreatePost(context.Background(), PostInput{Title: Str("Same title!")})
	var se *StoreError
	if !errors.As(err, &se) || se.Code() != store.CodeUniqueViolation {
		t.Fatalf("got %v, want StoreError %s", err, store.CodeUniqueViolation)
	}
}

func TestCreatePostWithoutArchiveColumn(t *testing.T) {
	s, logger := newTestService(t)
	p := mustCreatePost(t, s, "No Archive Column", "2024-01-01")
	if p.PostID != "no-archive-column" {
		t.Errorf("PostID = %q", p.PostID)
	}
	if logger.count() == 0 {
		t.Error("expected the omitted archive field to be logged")
	}
}

func TestGetPostsExcludesArchived(t *testing.T) {
	s, _ := newTestService(t, store.FeatureArchive)
	ctx := context.Background()
	mustCreatePost(t, s, "Old", "2023-01-01")
	mustCreatePost(t, s, "New", "2024-01-01")
	hidden := mustCreatePost(t, s, "Hidden", "2023-06-01")
	if _, err := s.ArchivePost(ctx, hidden.PostID); err != nil {
		t.Fatalf("ArchivePost: %v", err)
	}

	posts, err := s.GetPosts(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("GetPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	for _, p := range posts {
		if p.IsArchived {
			t.Errorf("archived post %q returned", p.PostID)
		}
	}
	if posts[0].PostID != "new" {
		t.Errorf("first post = %q, want newest", posts[0].PostID)
	}

	all, err := s.GetPosts(ctx, ListOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("GetPosts(includeArchived): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d posts, want 3", len(all))
	}
}

func TestGetPostsWithoutArchiveColumn(t *testing.T) {
	s, logger := newTestService(t)
	mustCreatePost(t, s, "One", "2023-01-01")
	mustCreatePost(t, s, "Two", "2024-01-01")

	posts, err := s.GetPosts(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("GetPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("got %d posts, want 2", len(posts))
	}
	if logger.count() == 0 {
		t.Error("expected fallback warnings")
	}
}

func TestGetPostsRange(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	for _, d := range []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"} {
		mustCreatePost(t, s, "Post "+d, d)
	}
	page, err := s.GetPosts(context.Background(), ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("GetPosts: %v", err)
	}
	if len(page) != 2 || page[0].PublicationDate != "2024-03-01" || page[1].PublicationDate != "2024-02-01" {
		t.Errorf("page = %+v", page)
	}
}

func TestArchiveUnarchiveAdvancesUpdatedAt(t *testing.T) {
	s, _ := newTestService(t, store.FeatureArchive)
	ctx := context.Background()
	p := mustCreatePost(t, s, "Toggle Me", "2024-01-01")

	archived, err := s.ArchivePost(ctx, p.PostID)
	if err != nil {
		t.Fatalf("ArchivePost: %v", err)
	}
	if !archived.IsArchived {
		t.Error("post should be archived")
	}
	if !archived.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("archive: updated_at %v not after %v", archived.UpdatedAt, p.UpdatedAt)
	}

	restored, err := s.UnarchivePost(ctx, p.PostID)
	if err != nil {
		t.Fatalf("UnarchivePost: %v", err)
	}
	if restored.IsArchived {
		t.Error("post should not be archived")
	}
	if !restored.UpdatedAt.After(archived.UpdatedAt) {
		t.Errorf("unarchive: updated_at %v not after %v", restored.UpdatedAt, archived.UpdatedAt)
	}
}

func TestArchiveWithoutColumn(t *testing.T) {
	s, _ := newTestService(t)
	p := mustCreatePost(t, s, "Cannot Archive", "2024-01-01")

	_, err := s.ArchivePost(context.Background(), p.PostID)
	if !errors.Is(err, ErrFeatureUnavailable) {
		t.Fatalf("got %v, want ErrFeatureUnavailable", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("feature unavailable must not match ErrNotFound")
	}
	var fe *FeatureUnavailableError
	if !errors.As(err, &fe) || fe.Feature != store.FeatureArchive || fe.Guidance == "" {
		t.Errorf("error = %#v", err)
	}
	if fe.Error() != "Archive feature not available. Please add the is_archived column to the database." {
		t.Errorf("message = %q", fe.Error())
	}

	if _, err := s.UnarchivePost(context.Background(), p.PostID); !errors.Is(err, ErrFeatureUnavailable) {
		t.Errorf("unarchive: got %v", err)
	}
}

func TestArchiveMissingPost(t *testing.T) {
	s, _ := newTestService(t, store.FeatureArchive)
	if _, err := s.ArchivePost(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdatePostPartialMerge(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	p, err := s.CreatePost(ctx, PostInput{
		Title:           Str("Merge Me"),
		PublicationDate: Str("2024-01-01"),
		Excerpt:         Str("keep this"),
		Tags:            []string{"a", "b"},
		Introduction:    Str("one two"),
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	updated, err := s.UpdatePost(ctx, p.PostID, PostInput{
		Title:       Str("Merged"),
		MainContent: Str("three four five"),
		Tags:        []string{"b", "c", "B"},
	})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.Title != "Merged" || updated.Excerpt != "keep this" || updated.Introduction != "one two" {
		t.Errorf("merge lost fields: %+v", updated)
	}
	if updated.PostID != p.PostID {
		t.Errorf("post_id changed to %q", updated.PostID)
	}
	if updated.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", updated.WordCount)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "b" || updated.Tags[1] != "c" {
		t.Errorf("Tags = %v", updated.Tags)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Error("updated_at did not advance")
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("created_at changed")
	}

	if _, err := s.UpdatePost(ctx, "missing", PostInput{Title: Str("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: got %v", err)
	}
	if _, err := s.UpdatePost(ctx, p.PostID, PostInput{Title: Str("")}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty title: got %v", err)
	}
}

func TestPostSources(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	p, err := s.CreatePost(ctx, PostInput{
		Title: Str("Cited"),
		Sources: []Source{
			{URL: "https://one.example", Title: "One", SourceType: "News Article"},
			{URL: "  "},
			{URL: "https://two.example", Title: "Two", CaseNumber: "Petition 1 of 2024"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if len(p.Sources) != 2 {
		t.Fatalf("got %d sources, want 2 (blank url dropped)", len(p.Sources))
	}

	got, err := s.GetPost(ctx, p.PostID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if len(got.Sources) != 2 || got.Sources[1].CaseNumber != "Petition 1 of 2024" {
		t.Errorf("sources = %+v", got.Sources)
	}

	posts, err := s.GetPosts(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("GetPosts: %v", err)
	}
	if len(posts) != 1 || len(posts[0].Sources) != 2 {
		t.Errorf("listing sources = %+v", posts)
	}
}

func TestDeletePost(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	p, err := s.CreatePost(ctx, PostInput{
		Title:   Str("Short Lived"),
		Sources: []Source{{URL: "https://gone.example"}},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	prior, err := s.DeletePost(ctx, p.PostID)
	if err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if prior.Title != "Short Lived" || len(prior.Sources) != 1 {
		t.Errorf("prior = %+v", prior)
	}
	if _, err := s.GetPost(ctx, p.PostID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost after delete: %v", err)
	}
	left, err := s.Backend().Select(ctx, store.From("blog_sources").Eq("blog_post_id", p.ID))
	if err != nil {
		t.Fatalf("select sources: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("orphaned sources: %v", left)
	}
	if _, err := s.DeletePost(ctx, p.PostID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	db := openTestStore(t)
	s, _ := newServiceOn(t, db)
	db.Close()

	_, err := s.GetPosts(context.Background(), ListOptions{})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *StoreError", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFeatureUnavailable) {
		t.Error("store failure matched a typed condition")
	}
}
