package rank

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/suenchunyu/word-frequency/pkg/aggregate"
)

// Entry is one element of the ordered output.
type Entry[S cmp.Ordered, P any] struct {
	SortKey S
	Payload P
}

// RekeyFunc maps an aggregated key onto the sort key and payload it is
// emitted with.
type RekeyFunc[A any, S cmp.Ordered, P any] func(key string, aggregate A) (S, P, error)

// cancellation is checked once per this many rekeyed entries.
const checkInterval = 1024

type settings struct {
	workers int
	logger  zerolog.Logger
}

type Option func(s *settings)

// WithWorkers sets how many goroutines run the rekey function.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

type keyed[S cmp.Ordered, P any] struct {
	entry Entry[S, P]
	key   string
	pos   int
}

// Reorder rekeys every entry and returns them ascending by sort key. Equal
// sort keys are ordered by the original key, then by input position, so the
// result is fully determined by the input. Nothing is returned unless every
// entry was rekeyed and sorted.
func Reorder[A any, S cmp.Ordered, P any](ctx context.Context, entries []aggregate.Entry[A], rekey RekeyFunc[A, S, P], opts ...Option) ([]Entry[S, P], error) {
	s := settings{
		workers: runtime.NumCPU(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	items := make([]keyed[S, P], len(entries))

	workers := s.workers
	if workers > len(entries) {
		workers = len(entries)
	}
	errs := make([]error, workers)

	if workers > 0 {
		chunk := (len(entries) + workers - 1) / workers

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			lo := w * chunk
			if lo >= len(entries) {
				break
			}
			hi := min(lo+chunk, len(entries))

			wg.Add(1)
			go func(w, lo, hi int) {
				defer wg.Done()
				errs[w] = rekeyRange(ctx, entries[lo:hi], items[lo:hi], lo, rekey)
			}(w, lo, hi)
		}
		wg.Wait()
	}

	// the lowest failing chunk wins so the reported error does not depend
	// on scheduling.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b keyed[S, P]) int {
		if c := cmp.Compare(a.entry.SortKey, b.entry.SortKey); c != 0 {
			return c
		}
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
		return a.pos - b.pos
	})

	out := make([]Entry[S, P], len(items))
	for i := range items {
		out[i] = items[i].entry
	}

	s.logger.Debug().Int("entries", len(out)).Int("workers", workers).Msg("reorder finished")
	return out, nil
}

func rekeyRange[A any, S cmp.Ordered, P any](ctx context.Context, src []aggregate.Entry[A], dst []keyed[S, P], offset int, rekey RekeyFunc[A, S, P]) error {
	for i, e := range src {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		sortKey, payload, err := safeRekey(rekey, e)
		if err != nil {
			return &RekeyError{Key: e.Key, Aggregate: e.Aggregate, Err: err}
		}

		dst[i] = keyed[S, P]{
			entry: Entry[S, P]{SortKey: sortKey, Payload: payload},
			key:   e.Key,
			pos:   offset + i,
		}
	}
	return nil
}

func safeRekey[A any, S cmp.Ordered, P any](rekey RekeyFunc[A, S, P], e aggregate.Entry[A]) (sortKey S, payload P, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rekey panicked: %v", r)
		}
	}()
	return rekey(e.Key, e.Aggregate)
}
