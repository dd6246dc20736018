package aggregate

import (
	"context"
	"hash/fnv"
	"runtime"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Record is a single (key, value) pair fed into an Aggregator.
type Record[V any] struct {
	Key   string
	Value V
}

// Entry is the folded result of every Record sharing Key.
type Entry[A any] struct {
	Key       string
	Aggregate A
}

// CombineFunc folds one value into an accumulator. It must be associative
// and commutative, records reach it in no particular order.
type CombineFunc[A, V any] func(acc A, value V) A

// ValidateFunc rejects a record before it is grouped.
type ValidateFunc[V any] func(r Record[V]) error

// Number is the set of types Sum can fold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Sum is the CombineFunc of the word count: integer addition.
func Sum[N Number](acc N, value N) N {
	return acc + value
}

const defaultLaneBuffer = 256

type settings struct {
	lanes  int
	buffer int
	logger zerolog.Logger
}

type Option func(s *settings)

// WithLanes sets how many goroutines fold records. Every key is owned by
// exactly one lane, chosen by hashing the key.
func WithLanes(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.lanes = n
	}
}

// WithLaneBuffer sets the channel capacity between the dispatcher and each lane.
func WithLaneBuffer(n int) Option {
	return func(s *settings) {
		if n < 0 {
			n = 0
		}
		s.buffer = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Aggregator groups records by key and folds every group into one Entry.
// An Aggregator holds no state between calls and is safe for concurrent use.
type Aggregator[V, A any] struct {
	combine  CombineFunc[A, V]
	identity A
	validate ValidateFunc[V]
	settings settings
}

// New returns an Aggregator folding values with combine, starting every
// group from identity.
func New[V, A any](combine CombineFunc[A, V], identity A, opts ...Option) *Aggregator[V, A] {
	s := settings{
		lanes:  runtime.NumCPU(),
		buffer: defaultLaneBuffer,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Aggregator[V, A]{
		combine:  combine,
		identity: identity,
		settings: s,
	}
}

// Validator installs fn as an extra check run on every record after the
// built-in key checks.
func (a *Aggregator[V, A]) Validator(fn ValidateFunc[V]) *Aggregator[V, A] {
	a.validate = fn
	return a
}

// Aggregate folds records into one Entry per distinct key. The order of the
// returned entries is unspecified. records is not modified.
func (a *Aggregator[V, A]) Aggregate(ctx context.Context, records []Record[V]) ([]Entry[A], error) {
	i := 0
	return a.run(ctx, func() (Record[V], bool, error) {
		if i >= len(records) {
			return Record[V]{}, false, nil
		}
		r := records[i]
		i++
		return r, true, nil
	})
}

// AggregateStream is Aggregate over a channel, it returns once in is closed.
// On failure in is no longer read, so producers must also watch ctx.
func (a *Aggregator[V, A]) AggregateStream(ctx context.Context, in <-chan Record[V]) ([]Entry[A], error) {
	return a.run(ctx, func() (Record[V], bool, error) {
		select {
		case <-ctx.Done():
			return Record[V]{}, false, ctx.Err()
		case r, ok := <-in:
			return r, ok, nil
		}
	})
}

type lane[V, A any] struct {
	in     chan Record[V]
	groups map[string]A
}

func (l *lane[V, A]) fold(combine CombineFunc[A, V], identity A) {
	for r := range l.in {
		acc, ok := l.groups[r.Key]
		if !ok {
			acc = identity
		}
		l.groups[r.Key] = combine(acc, r.Value)
	}
}

func (a *Aggregator[V, A]) run(ctx context.Context, next func() (Record[V], bool, error)) ([]Entry[A], error) {
	lanes := make([]*lane[V, A], a.settings.lanes)

	var wg sync.WaitGroup
	for i := range lanes {
		l := &lane[V, A]{
			in:     make(chan Record[V], a.settings.buffer),
			groups: make(map[string]A),
		}
		lanes[i] = l

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.fold(a.combine, a.identity)
		}()
	}

	n, err := a.dispatch(ctx, lanes, next)
	for _, l := range lanes {
		close(l.in)
	}
	wg.Wait()

	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := a.merge(ctx, lanes)
	if err != nil {
		return nil, err
	}

	a.settings.logger.Debug().
		Int("records", n).
		Int("keys", len(entries)).
		Int("lanes", len(lanes)).
		Msg("aggregation finished")

	return entries, nil
}

func (a *Aggregator[V, A]) dispatch(ctx context.Context, lanes []*lane[V, A], next func() (Record[V], bool, error)) (int, error) {
	pos := 0
	for ; ; pos++ {
		r, ok, err := next()
		if err != nil {
			return pos, err
		}
		if !ok {
			return pos, nil
		}

		if err = a.check(pos, r); err != nil {
			return pos, err
		}

		l := lanes[partition(r.Key, len(lanes))]
		select {
		case l.in <- r:
		case <-ctx.Done():
			return pos, ctx.Err()
		}
	}
}

func (a *Aggregator[V, A]) check(pos int, r Record[V]) error {
	switch {
	case r.Key == "":
		return &InvalidRecordError{Position: pos, Key: r.Key, Value: r.Value, Reason: "empty key"}
	case !utf8.ValidString(r.Key):
		return &InvalidRecordError{Position: pos, Key: r.Key, Value: r.Value, Reason: "key is not valid UTF-8"}
	}

	if a.validate != nil {
		if err := a.validate(r); err != nil {
			return &InvalidRecordError{Position: pos, Key: r.Key, Value: r.Value, Err: err}
		}
	}
	return nil
}

// merge gathers the disjoint lane maps into one slice.
func (a *Aggregator[V, A]) merge(ctx context.Context, lanes []*lane[V, A]) ([]Entry[A], error) {
	total := 0
	for _, l := range lanes {
		total += len(l.groups)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		entries = make([]Entry[A], 0, total)
	)
	for _, l := range lanes {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(l *lane[V, A]) {
			defer wg.Done()

			local := make([]Entry[A], 0, len(l.groups))
			for key, acc := range l.groups {
				local = append(local, Entry[A]{Key: key, Aggregate: acc})
			}

			mu.Lock()
			entries = append(entries, local...)
			mu.Unlock()
		}(l)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// partition maps a key onto one of n lanes.
func partition(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
