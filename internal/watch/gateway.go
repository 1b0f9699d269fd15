package watch

import (
	"context"
	"sync"
	"time"

	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/internal/picker"
	"detectview/pkg/types"
)

// DefaultSettle is how long a folder must stay quiet before a batch is
// handed out.
const DefaultSettle = 2 * time.Second

// Gateway is a selection gateway fed by a watched folder: each request
// waits for images to land in the folder and returns them once writes
// have settled.
type Gateway struct {
	watcher *Watcher
	settle  time.Duration

	mu      sync.Mutex
	pending []string
}

var _ picker.Gateway = (*Gateway)(nil)

// NewGateway wraps a started Watcher.
func NewGateway(w *Watcher, settle time.Duration) *Gateway {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Gateway{watcher: w, settle: settle}
}

// RequestImages implements picker.Gateway. It returns errors.ErrCancelled
// when ctx ends or the watcher stops before any image arrives. Images
// beyond the limit are kept for the next request.
func (g *Gateway) RequestImages(ctx context.Context, limit picker.Limit) ([]types.SelectedImage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	events := g.watcher.Events()
	batch := newOrderedSet(g.pending)
	g.pending = nil

	if batch.len() == 0 {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, errors.ErrCancelled
			}
			batch.add(ev.Path)
		case <-ctx.Done():
			return nil, errors.ErrCancelled
		}
	}

	quiet := time.NewTimer(g.settle)
	defer quiet.Stop()

collect:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break collect
			}
			batch.add(ev.Path)
			quiet.Reset(g.settle)
		case <-quiet.C:
			break collect
		case <-ctx.Done():
			g.pending = batch.items
			return nil, errors.ErrCancelled
		}
	}

	take := batch.items
	if n := limit.Cap(); len(take) > n {
		g.pending = append(g.pending, take[n:]...)
		take = take[:n]
	}

	images := make([]types.SelectedImage, 0, len(take))
	for _, p := range take {
		img, err := media.Describe(p)
		if err != nil {
			log.LogWithError(err).Warn("skipping image that vanished")
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, errors.ErrCancelled
	}

	log.LogWithFields(log.F("images", len(images)), log.F("pending", len(g.pending))).Info("watched folder batch ready")
	return images, nil
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func newOrderedSet(initial []string) *orderedSet {
	s := &orderedSet{seen: map[string]bool{}}
	for _, p := range initial {
		s.add(p)
	}
	return s
}

func (s *orderedSet) add(p string) {
	if s.seen[p] {
		return
	}
	s.seen[p] = true
	s.items = append(s.items, p)
}

func (s *orderedSet) len() int { return len(s.items) }
