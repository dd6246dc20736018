package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/suenchunyu/word-frequency/internal/config"
	"github.com/suenchunyu/word-frequency/internal/model"
	"github.com/suenchunyu/word-frequency/internal/sink"
	"github.com/suenchunyu/word-frequency/internal/storage"
	"github.com/suenchunyu/word-frequency/pkg/plugin"
	"github.com/suenchunyu/word-frequency/pkg/rank"
	"github.com/suenchunyu/word-frequency/pkg/snowflake"
	"github.com/suenchunyu/word-frequency/pkg/wordfreq"
)

var (
	ErrNoInput         = errors.New("job has no input")
	ErrNoResultStore   = errors.New("no result store configured")
	ErrReadersMismatch = errors.New("names and readers differ in length")
)

type Option func(r *Runner)

func WithDriver(d *wordfreq.Driver) Option {
	return func(r *Runner) {
		if d != nil {
			r.driver = d
		}
	}
}

func WithNode(n *snowflake.Node) Option {
	return func(r *Runner) {
		if n != nil {
			r.node = n
		}
	}
}

// WithFormat sets the encoding of persisted results.
func WithFormat(f sink.Format) Option {
	return func(r *Runner) {
		r.format = f
	}
}

// WithBuffer sets the size of the sink buffer persisted results are
// encoded through.
func WithBuffer(size int) Option {
	return func(r *Runner) {
		r.buffer = size
	}
}

// WithPrefix sets the name prefix of persisted results.
func WithPrefix(prefix string) Option {
	return func(r *Runner) {
		r.prefix = prefix
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Stats counts the jobs a Runner has seen.
type Stats struct {
	Running  uint64
	Finished uint64
	Failed   uint64
}

// Runner executes word-frequency jobs over objects of a store and keeps
// their results. It is safe for concurrent use, each job is independent.
type Runner struct {
	tasks   storage.Store // Store input objects are read from.
	results storage.Store // Store results are written to, may be nil.

	driver *wordfreq.Driver
	node   *snowflake.Node
	format sink.Format
	buffer int
	prefix string
	logger zerolog.Logger

	running  uint64
	finished uint64
	failed   uint64
}

func New(tasks, results storage.Store, opts ...Option) (*Runner, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		tasks:   tasks,
		results: results,
		driver:  wordfreq.New(),
		node:    node,
		format:  sink.FormatTSV,
		buffer:  sink.DefaultBuffer,
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// FromConfig builds a Runner with its stores, tokenizer and driver set up
// from c.
func FromConfig(c *config.Config, logger zerolog.Logger) (*Runner, error) {
	tasks, results, err := storage.Open(c.Storage)
	if err != nil {
		return nil, err
	}

	format, err := sink.FormatFromString(c.Sink.Format)
	if err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(c.Snowflake.NodeID)
	if err != nil {
		return nil, err
	}

	opts := []wordfreq.Option{
		wordfreq.WithPadWidth(c.Pipeline.PadWidth),
		wordfreq.WithOverflowPolicy(rank.OverflowPolicyFromString(c.Pipeline.Overflow)),
		wordfreq.WithLanes(c.Pipeline.Lanes),
		wordfreq.WithLaneBuffer(c.Pipeline.LaneBuffer),
		wordfreq.WithWorkers(c.Pipeline.Workers),
		wordfreq.WithLogger(logger),
	}

	// load the tokenizer plugin.
	if c.Tokenizer.Plugin.Enabled {
		p, err := plugin.Load(c.Tokenizer.Plugin.Path)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer plugin %s: %w", c.Tokenizer.Plugin.Path, err)
		}
		logger.Info().Str("path", c.Tokenizer.Plugin.Path).Str("version", p.Version()).Msg("tokenizer plugin loaded")
		opts = append(opts, wordfreq.WithTokenizer(p))
	}

	return New(tasks, results,
		WithDriver(wordfreq.New(opts...)),
		WithNode(node),
		WithFormat(format),
		WithBuffer(c.Sink.Buffer),
		WithPrefix(c.Storage.ResultPrefix),
		WithLogger(logger),
	)
}

// Run counts the words of the named objects. A name ending in "/" stands
// for every object below it. When persist is set the result is stored and
// its name recorded on the returned job.
func (r *Runner) Run(ctx context.Context, objects []string, persist bool) (*model.Job, []rank.Entry[string, string], error) {
	names, err := r.expand(ctx, objects)
	if err != nil {
		return nil, nil, err
	}

	readers := make([]io.Reader, 0, len(names))
	closers := make([]io.Closer, 0, len(names))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	for _, name := range names {
		rc, err := r.tasks.Get(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		readers = append(readers, rc)
		closers = append(closers, rc)
	}

	return r.RunReaders(ctx, names, readers, persist)
}

// RunText counts the words of text.
func (r *Runner) RunText(ctx context.Context, text string, persist bool) (*model.Job, []rank.Entry[string, string], error) {
	return r.RunReaders(ctx, nil, []io.Reader{strings.NewReader(text)}, persist)
}

// RunReaders counts the words of every reader. names label the readers on
// the job and may be nil.
func (r *Runner) RunReaders(ctx context.Context, names []string, readers []io.Reader, persist bool) (*model.Job, []rank.Entry[string, string], error) {
	if len(readers) == 0 {
		return nil, nil, ErrNoInput
	}
	if names != nil && len(names) != len(readers) {
		return nil, nil, ErrReadersMismatch
	}
	if persist && r.results == nil {
		return nil, nil, ErrNoResultStore
	}

	job := model.NewJob(r.node.Generate().String(), names)
	job.Start()
	atomic.AddUint64(&r.running, 1)
	defer atomic.AddUint64(&r.running, ^uint64(0))

	log := r.logger.With().Str("job", job.ID).Logger()
	log.Info().Int("inputs", len(readers)).Msg("job started")

	entries, err := r.driver.RunText(ctx, readers...)
	if err == nil && persist {
		err = r.store(ctx, job, entries)
	}
	if err != nil {
		job.Fail(err)
		atomic.AddUint64(&r.failed, 1)
		log.Error().Err(err).Msg("job failed")
		return job, nil, err
	}

	job.Finish(len(entries), job.Result)
	atomic.AddUint64(&r.finished, 1)
	log.Info().Int("words", job.Words).Str("result", job.Result).Msg("job finished")
	return job, entries, nil
}

// store encodes entries and keeps them as <prefix><job id><ext>.
func (r *Runner) store(ctx context.Context, job *model.Job, entries []rank.Entry[string, string]) error {
	b, err := sink.Encode(entries, r.format, r.buffer)
	if err != nil {
		return err
	}

	name := r.prefix + job.ID + r.format.Ext()
	if err = r.results.Put(ctx, name, bytes.NewReader(b), int64(len(b))); err != nil {
		return fmt.Errorf("store result %s: %w", name, err)
	}
	job.Result = name
	return nil
}

func (r *Runner) expand(ctx context.Context, objects []string) ([]string, error) {
	if len(objects) == 0 {
		return nil, ErrNoInput
	}

	names := make([]string, 0, len(objects))
	for _, o := range objects {
		if !strings.HasSuffix(o, "/") {
			names = append(names, o)
			continue
		}

		listed, err := r.tasks.List(ctx, o)
		if err != nil {
			return nil, err
		}
		if len(listed) == 0 {
			return nil, fmt.Errorf("%w: no objects below %s", storage.ErrNotFound, o)
		}
		names = append(names, listed...)
	}
	return names, nil
}

func (r *Runner) Stats() Stats {
	return Stats{
		Running:  atomic.LoadUint64(&r.running),
		Finished: atomic.LoadUint64(&r.finished),
		Failed:   atomic.LoadUint64(&r.failed),
	}
}
