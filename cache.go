package dossier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/dossier/content"
)

// ReadCache is an in-memory cache of the public (unarchived) posts and the
// timeline, refreshed after TTL or on Invalidate.
type ReadCache struct {
	mu      sync.RWMutex
	posts   []content.Post
	entries []content.TimelineEntry
	fetched time.Time
	ttl     time.Duration
	svc     *content.Service
}

// NewReadCache creates a ReadCache backed by svc.
func NewReadCache(svc *content.Service, ttl time.Duration) *ReadCache {
	return &ReadCache{svc: svc, ttl: ttl}
}

func (c *ReadCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ReadCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.entries = nil
	c.mu.Unlock()
}

func (c *ReadCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	var (
		posts   []content.Post
		entries []content.TimelineEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		posts, err = c.svc.GetPosts(gctx, content.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		entries, err = c.svc.GetTimelineEntries(gctx, content.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if posts == nil {
		posts = []content.Post{}
	}
	c.posts = posts
	c.entries = entries
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached content after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ReadCache) ensureLoaded(ctx context.Context) ([]content.Post, []content.TimelineEntry, error) {
	c.mu.RLock()
	if c.valid() {
		posts, entries := c.posts, c.entries
		c.mu.RUnlock()
		return posts, entries, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.entries, nil
}

// Posts returns the public posts matching f, newest first.
func (c *ReadCache) Posts(ctx context.Context, f content.PostFilter) ([]content.Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return content.FilterPosts(posts, f), nil
}

// Post returns a single public post by its post_id.
func (c *ReadCache) Post(ctx context.Context, id string) (content.Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.Post{}, err
	}
	for _, p := range posts {
		if p.PostID == id {
			return p, nil
		}
	}
	return content.Post{}, content.ErrNotFound
}

// Timeline returns the timeline entries matching f, newest first.
func (c *ReadCache) Timeline(ctx context.Context, f content.TimelineFilter) ([]content.TimelineEntry, error) {
	_, entries, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return content.FilterTimeline(entries, f), nil
}
