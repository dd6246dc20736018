package wordfreq

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/suenchunyu/word-frequency/pkg/aggregate"
	"github.com/suenchunyu/word-frequency/pkg/rank"
	"github.com/suenchunyu/word-frequency/pkg/tokenize"
)

// Phase is the stage a run is in. A run moves strictly forward through
// the phases and never re-enters one.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAggregating
	PhaseOrdering
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAggregating:
		return "aggregating"
	case PhaseOrdering:
		return "ordering"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("unknown (%d)", p)
	}
}

type Option func(d *Driver)

func WithTokenizer(t tokenize.Tokenizer) Option {
	return func(d *Driver) {
		if t != nil {
			d.tokenizer = t
		}
	}
}

// WithPadWidth sets the minimum sort key width.
func WithPadWidth(width int) Option {
	return func(d *Driver) {
		if width > 0 {
			d.width = width
		}
	}
}

func WithOverflowPolicy(p rank.OverflowPolicy) Option {
	return func(d *Driver) {
		d.overflow = p
	}
}

// WithLanes sets the number of aggregation lanes, zero keeps the default.
func WithLanes(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.lanes = n
		}
	}
}

func WithLaneBuffer(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.laneBuffer = n
		}
	}
}

// WithWorkers sets the number of rekey goroutines, zero keeps the default.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// Driver counts words and orders them by ascending count. It only holds
// configuration, every call is an independent run.
type Driver struct {
	tokenizer  tokenize.Tokenizer
	width      int
	overflow   rank.OverflowPolicy
	lanes      int
	laneBuffer int
	workers    int
	logger     zerolog.Logger
}

func New(opts ...Option) *Driver {
	d := &Driver{
		tokenizer:  tokenize.Default,
		width:      rank.DefaultWidth,
		overflow:   rank.OverflowWiden,
		lanes:      runtime.NumCPU(),
		laneBuffer: 256,
		workers:    runtime.NumCPU(),
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run counts the records and returns (zero-padded count, word) pairs
// ascending by count, ties ascending by word.
func (d *Driver) Run(ctx context.Context, records []aggregate.Record[int64]) ([]rank.Entry[string, string], error) {
	d.enter(PhaseAggregating)
	entries, err := d.aggregator().Aggregate(ctx, records)
	if err != nil {
		return nil, err
	}
	return d.order(ctx, entries)
}

// RunStream is Run over records received from in until it is closed.
func (d *Driver) RunStream(ctx context.Context, in <-chan aggregate.Record[int64]) ([]rank.Entry[string, string], error) {
	d.enter(PhaseAggregating)
	entries, err := d.aggregator().AggregateStream(ctx, in)
	if err != nil {
		return nil, err
	}
	return d.order(ctx, entries)
}

// RunText tokenizes every reader in turn and runs over the resulting words.
func (d *Driver) RunText(ctx context.Context, readers ...io.Reader) ([]rank.Entry[string, string], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan aggregate.Record[int64], d.laneBuffer)
	scanned := make(chan error, 1)
	go func() {
		defer close(records)
		for i, r := range readers {
			if err := tokenize.Scan(ctx, d.tokenizer, r, records); err != nil {
				scanned <- fmt.Errorf("tokenize input %d: %w", i, err)
				return
			}
		}
		scanned <- nil
	}()

	result, err := d.RunStream(ctx, records)
	if err != nil {
		cancel()
		<-scanned
		return nil, err
	}

	if err = <-scanned; err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Driver) aggregator() *aggregate.Aggregator[int64, int64] {
	a := aggregate.New[int64](
		aggregate.Sum[int64],
		0,
		aggregate.WithLanes(d.lanes),
		aggregate.WithLaneBuffer(d.laneBuffer),
		aggregate.WithLogger(d.logger),
	)
	return a.Validator(func(r aggregate.Record[int64]) error {
		if r.Value < 0 {
			return rank.ErrNegative
		}
		return nil
	})
}

func (d *Driver) order(ctx context.Context, entries []aggregate.Entry[int64]) ([]rank.Entry[string, string], error) {
	d.enter(PhaseOrdering)

	enc, err := d.encoder(entries)
	if err != nil {
		return nil, err
	}

	result, err := rank.Reorder(ctx, entries, func(word string, count int64) (string, string, error) {
		key, err := enc.Encode(count)
		return key, word, err
	}, rank.WithWorkers(d.workers), rank.WithLogger(d.logger))
	if err != nil {
		return nil, err
	}

	d.logger.Debug().Stringer("phase", PhaseDone).Int("words", len(result)).Int("width", enc.Width).Msg("run finished")
	return result, nil
}

// encoder sizes the sort key for the largest count of the run.
func (d *Driver) encoder(entries []aggregate.Entry[int64]) (rank.PadEncoder, error) {
	var (
		max    int64
		maxKey string
	)
	for _, e := range entries {
		if e.Aggregate > max || (e.Aggregate == max && (maxKey == "" || e.Key < maxKey)) {
			max, maxKey = e.Aggregate, e.Key
		}
	}

	return rank.PadEncoder{Width: d.width}.Fit(maxKey, max, d.overflow)
}

func (d *Driver) enter(p Phase) {
	d.logger.Debug().Stringer("phase", p).Msg("phase started")
}
