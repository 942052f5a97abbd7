// internal/paginate/walker.go
package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxPages stops a walk whose upstream never returns an empty page.
var ErrMaxPages = errors.New("maximum page count reached")

// FetchError reports the page on which a walk was abandoned. Pages before it
// have already been visited.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PageFunc fetches one 1-based page of at most perPage items.
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, error)

// VisitFunc receives every non-empty page in order.
type VisitFunc[T any] func(ctx context.Context, items []T) error

// Walker holds the paging parameters shared by every walk of one resource.
type Walker struct {
	PerPage  int
	MaxPages int
	// Delay is the pause after each non-empty page.
	Delay  time.Duration
	Retry  RetryPolicy
	Logger *slog.Logger
}

// Result counts what a walk visited.
type Result struct {
	Pages int
	Items int
}

// Walk requests pages 1, 2, 3, ... until an empty page is returned and hands
// every non-empty page to visit.
func Walk[T any](ctx context.Context, w Walker, fetch PageFunc[T], visit VisitFunc[T]) (Result, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for page := 1; ; page++ {
		if w.MaxPages > 0 && page > w.MaxPages {
			return res, &FetchError{Page: page, Err: ErrMaxPages}
		}

		logger.Debug("Fetching page", "page", page, "per_page", w.PerPage)
		items, err := Do(ctx, w.Retry, logger, func(ctx context.Context) ([]T, error) {
			return fetch(ctx, page, w.PerPage)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			return res, &FetchError{Page: page, Err: err}
		}
		if len(items) == 0 {
			return res, nil
		}

		if err := visit(ctx, items); err != nil {
			return res, err
		}
		res.Pages++
		res.Items += len(items)

		if err := sleep(ctx, w.Delay); err != nil {
			return res, err
		}
	}
}

// Collect walks every page and returns the concatenated items. On a
// *FetchError the items gathered before it are returned with the error.
func Collect[T any](ctx context.Context, w Walker, fetch PageFunc[T]) ([]T, error) {
	var all []T
	_, err := Walk(ctx, w, fetch, func(_ context.Context, items []T) error {
		all = append(all, items...)
		return nil
	})
	return all, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
