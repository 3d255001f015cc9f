package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/dossier/store"
)

const postsTable = "blog_posts"

// selectWithFallback runs q and narrows it as the fallback table allows until
// it succeeds or fails with an unrecognized error.
func (s *Service) selectWithFallback(ctx context.Context, op operation, q store.Query) ([]store.Row, error) {
	for {
		rows, err := s.db.Select(ctx, q)
		if err == nil {
			return rows, nil
		}
		a := decide(op, err)
		switch {
		case a == retryWithoutArchiveFilter && hasFilter(q, "is_archived"):
			q = q.Without("is_archived")
		case a == retryWithoutSources && q.Embed != nil:
			q = q.Flat()
		case a == emptyResult:
			s.fallback(op, a, err)
			return []store.Row{}, nil
		default:
			return nil, wrap(op, err)
		}
		s.fallback(op, a, err)
	}
}

func hasFilter(q store.Query, column string) bool {
	for _, f := range q.Filters {
		if f.Column == column {
			return true
		}
	}
	return false
}

// GetPosts lists posts newest first. Archived posts are left out unless
// opts.IncludeArchived is set; a database without the archive column returns
// every post.
func (s *Service) GetPosts(ctx context.Context, opts ListOptions) ([]Post, error) {
	q := store.From(postsTable).
		Order("publication_date", true).
		Order("id", true).
		Range(opts.Offset, opts.Limit).
		With(postSources.embed())
	if !opts.IncludeArchived {
		q = q.Eq("is_archived", false)
	}
	rows, err := s.selectWithFallback(ctx, opListPosts, q)
	if err != nil {
		return nil, err
	}
	return decodePosts(rows)
}

// GetPost returns the post with the given post_id.
func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	q := store.From(postsTable).Eq("post_id", id).With(postSources.embed())
	rows, err := s.selectWithFallback(ctx, opGetPost, q)
	if err != nil {
		return Post{}, err
	}
	row, err := store.Single(rows)
	if err != nil {
		return Post{}, wrap(opGetPost, err)
	}
	return decodePost(row)
}

func (in PostInput) fields() store.Row {
	row := store.Row{}
	set := func(k string, v *string) {
		if v != nil {
			row[k] = strings.TrimSpace(*v)
		}
	}
	set("title", in.Title)
	set("category", in.Category)
	set("excerpt", in.Excerpt)
	set("significance", in.Significance)
	set("publication_date", in.PublicationDate)
	set("author", in.Author)
	set("case_type", in.CaseType)
	set("outcome", in.Outcome)
	set("legal_implications", in.LegalImplications)
	set("twitter_summary", in.TwitterSummary)
	set("linkedin_summary", in.LinkedInSummary)
	// Body sections keep their whitespace.
	if in.Introduction != nil {
		row["introduction"] = *in.Introduction
	}
	if in.MainContent != nil {
		row["main_content"] = *in.MainContent
	}
	if in.Conclusion != nil {
		row["conclusion"] = *in.Conclusion
	}
	if in.Tags != nil {
		row["tags"] = Dedupe(in.Tags)
	}
	return row
}

func (in PostInput) bodyChanged() bool {
	return in.Introduction != nil || in.MainContent != nil || in.Conclusion != nil
}

func (in PostInput) validate(create bool) error {
	if err := validateTitle(in.Title, create); err != nil {
		return err
	}
	return validateDate("publication_date", in.PublicationDate)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CreatePost inserts a post keyed by the slug of its title. The archive flag
// is written as false when the column exists.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (Post, error) {
	if err := in.validate(true); err != nil {
		return Post{}, err
	}
	slug := Slugify(*in.Title)
	if slug == "" {
		return Post{}, fmt.Errorf("%w: title %q has no letters or digits", ErrInvalidInput, *in.Title)
	}
	row := in.fields()
	now := s.now()
	words := WordCount(deref(in.Introduction), deref(in.MainContent), deref(in.Conclusion))
	row["post_id"] = slug
	row["slug"] = slug
	row["word_count"] = words
	row["reading_time"] = ReadingTime(words)
	row["created_at"] = now
	row["updated_at"] = now
	row["is_archived"] = false
	if _, ok := row["publication_date"]; !ok {
		row["publication_date"] = now.Format("2006-01-02")
	}
	if _, ok := row["tags"]; !ok {
		row["tags"] = []string{}
	}
	if _, ok := row["author"]; !ok {
		row["author"] = "Research Team"
	}

	rows, err := s.db.Insert(ctx, postsTable, row)
	if err != nil && decide(opCreatePost, err) == omitArchiveField {
		s.fallback(opCreatePost, omitArchiveField, err)
		delete(row, "is_archived")
		rows, err = s.db.Insert(ctx, postsTable, row)
	}
	if err != nil {
		return Post{}, wrap(opCreatePost, err)
	}
	inserted, err := store.Single(rows)
	if err != nil {
		return Post{}, wrap(opCreatePost, err)
	}
	p, err := decodePost(inserted)
	if err != nil {
		return Post{}, err
	}
	if len(in.Sources) > 0 {
		if p.Sources, err = s.replaceSources(ctx, postSources, p.ID, in.Sources); err != nil {
			return Post{}, err
		}
	}
	return p, nil
}

// UpdatePost merges the set fields of in into the post and refreshes
// updated_at. Reading time and word count follow any change to the body.
// A non-nil Sources replaces the post's sources.
func (s *Service) UpdatePost(ctx context.Context, id string, in PostInput) (Post, error) {
	if err := in.validate(false); err != nil {
		return Post{}, err
	}
	values := in.fields()
	if in.bodyChanged() {
		rows, err := s.db.Select(ctx, store.From(postsTable).Eq("post_id", id))
		if err != nil {
			return Post{}, wrap(opUpdatePost, err)
		}
		cur, err := store.Single(rows)
		if err != nil {
			return Post{}, wrap(opUpdatePost, err)
		}
		body := func(k string) string {
			if v, ok := values[k]; ok {
				return v.(string)
			}
			v, _ := cur[k].(string)
			return v
		}
		words := WordCount(body("introduction"), body("main_content"), body("conclusion"))
		values["word_count"] = words
		values["reading_time"] = ReadingTime(words)
	}
	values["updated_at"] = s.now()

	rows, err := s.db.Update(ctx, postsTable, values, store.Eq("post_id", id))
	if err != nil {
		return Post{}, wrap(opUpdatePost, err)
	}
	updated, err := store.Single(rows)
	if err != nil {
		return Post{}, wrap(opUpdatePost, err)
	}
	return s.withPostSources(ctx, updated, in.Sources)
}

// withPostSources decodes row and attaches its sources, replacing them first
// when next is non-nil.
func (s *Service) withPostSources(ctx context.Context, row store.Row, next []Source) (Post, error) {
	p, err := decodePost(row)
	if err != nil {
		return Post{}, err
	}
	if next != nil {
		p.Sources, err = s.replaceSources(ctx, postSources, p.ID, next)
	} else {
		p.Sources, err = s.loadSources(ctx, postSources, p.ID)
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// ArchivePost hides a post from default listings.
func (s *Service) ArchivePost(ctx context.Context, id string) (Post, error) {
	return s.setArchived(ctx, id, true)
}

// UnarchivePost reverses ArchivePost.
func (s *Service) UnarchivePost(ctx context.Context, id string) (Post, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Service) setArchived(ctx context.Context, id string, archived bool) (Post, error) {
	rows, err := s.db.Update(ctx, postsTable, store.Row{
		"is_archived": archived,
		"updated_at":  s.now(),
	}, store.Eq("post_id", id))
	if err != nil {
		if a := decide(opArchivePost, err); a == featureUnavailable {
			s.fallback(opArchivePost, a, err)
			return Post{}, archiveUnavailable()
		}
		return Post{}, wrap(opArchivePost, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Post{}, wrap(opArchivePost, err)
	}
	return s.withPostSources(ctx, row, nil)
}

// DeletePost removes a post and its sources and returns the post as it was.
func (s *Service) DeletePost(ctx context.Context, id string) (Post, error) {
	prior, err := s.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	rows, err := s.db.Delete(ctx, postsTable, store.Eq("post_id", id))
	if err != nil {
		return Post{}, wrap(opDeletePost, err)
	}
	if _, err := store.Single(rows); err != nil {
		return Post{}, wrap(opDeletePost, err)
	}
	if err := s.deleteSources(ctx, postSources, prior.ID); err != nil {
		return Post{}, err
	}
	return prior, nil
}
