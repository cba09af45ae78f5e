package ingest

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/opini/pkg/opini/normalize"
	"github.com/cognicore/opini/pkg/opini/stem"
)

// Cleaner turns raw post content into cleaned text:
// normalize → reduce. The result is lowercase and free of URLs, mentions,
// hashtag markers, digits and punctuation.
type Cleaner struct {
	reducer *stem.Reducer
}

// NewCleaner creates a cleaner. A nil reducer uses stem.Default().
func NewCleaner(reducer *stem.Reducer) *Cleaner {
	if reducer == nil {
		reducer = stem.Default()
	}
	return &Cleaner{reducer: reducer}
}

// Clean processes one content string.
func (c *Cleaner) Clean(content string) string {
	return c.reducer.Reduce(normalize.Normalize(content))
}

// CleanAll cleans every post's content with up to workers goroutines
// (GOMAXPROCS when workers <= 0). The result is index-aligned with posts.
func (c *Cleaner) CleanAll(ctx context.Context, posts []Post, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]string, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range posts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = c.Clean(posts[i].Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
