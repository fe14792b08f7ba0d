// Package enrich resolves the titles of pages that relation properties point at.
package enrich

import (
	"context"
	"errors"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/sayshey/clientportal/pkg/notion"
)

var log = logging.Logger("enrich")

// TitleField is added to each relation property that could be resolved
const TitleField = "relation_titles"

const (
	defaultEvery = 5
	defaultPause = 100 * time.Millisecond
)

// TitleSource looks up a page title
type TitleSource interface {
	PageTitle(ctx context.Context, id string) (string, error)
}

// Enricher walks records and fills in relation titles
type Enricher struct {
	src   TitleSource
	cache Cache
	every int
	pause time.Duration
}

// Option configures an Enricher
type Option func(*Enricher)

// WithCache reuses titles across records and requests
func WithCache(c Cache) Option {
	return func(e *Enricher) { e.cache = c }
}

// WithThrottle pauses for d after every n remote lookups
func WithThrottle(n int, d time.Duration) Option {
	return func(e *Enricher) {
		e.every = n
		e.pause = d
	}
}

// New returns an Enricher
func New(src TitleSource, opts ...Option) *Enricher {
	e := &Enricher{src: src, every: defaultEvery, pause: defaultPause}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich sets relation_titles on every non-empty relation property.
// Lookup failures are logged and skipped; only context cancellation stops the walk.
func (e *Enricher) Enrich(ctx context.Context, records []notion.Page) error {

	fetched := 0

	for _, rec := range records {
		for key, raw := range rec.Properties() {
			prop, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			id := notion.FirstRelation(prop)
			if id == "" {
				continue
			}

			title, remote, err := e.title(ctx, id)
			if remote {
				fetched++
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnw("relation fetch failed", "property", key, "page", id, "err", err)
			} else if title != "" {
				prop[TitleField] = title
			}

			if remote && e.every > 0 && fetched%e.every == 0 {
				if err := sleep(ctx, e.pause); err != nil {
					return err
				}
			}
		}
	}

	log.Debugw("enriched relations", "records", len(records), "fetched", fetched)
	return nil
}

// title reports whether it had to call Notion
func (e *Enricher) title(ctx context.Context, id string) (string, bool, error) {

	if e.cache != nil {
		t, err := e.cache.Get(ctx, id)
		if err == nil {
			return t, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Warnw("title cache read failed", "page", id, "err", err)
		}
	}

	t, err := e.src.PageTitle(ctx, id)
	if err != nil {
		return "", true, err
	}

	if e.cache != nil && t != "" {
		if err := e.cache.Set(ctx, id, t); err != nil {
			log.Warnw("title cache write failed", "page", id, "err", err)
		}
	}
	return t, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
