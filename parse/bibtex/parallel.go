package bibtex

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =========================
// Parallel Coordinator
// =========================

const (
	// AutoThreads sizes the worker pool from GOMAXPROCS.
	AutoThreads = -1

	DefaultMinChunkSize = 64 << 10
	DefaultSearchWindow = 16 << 10
)

// Options configures a Parser. The zero value parses sequentially.
type Options struct {
	// Threads: 0 parses sequentially, AutoThreads uses GOMAXPROCS workers,
	// n >= 1 uses n workers.
	Threads      int
	MinChunkSize int
	SearchWindow int

	Undefined           UndefinedPolicy
	NormalizeWhitespace bool
	MonthMacros         bool
	// LazyFieldIndex defers the substring index until the first FindByField.
	LazyFieldIndex bool

	Logger   *zap.Logger
	Observer Observer
}

// Observer receives statistics after every successful parse.
type Observer interface {
	ObserveParse(ParseStats)
}

// ParseStats describes one parse.
type ParseStats struct {
	Bytes    int
	Threads  int
	Chunks   int
	Records  int
	Entries  int
	Strings  int
	Warnings int
	// Fallback is set when a multi-chunk parse failed and the input was
	// parsed again as one chunk.
	Fallback bool

	Split  time.Duration
	Parse  time.Duration
	Expand time.Duration
	Index  time.Duration
	Total  time.Duration
}

// Parser parses BibTeX input into a Database. It is safe for concurrent use.
type Parser struct {
	opts Options
	log  *zap.Logger
}

func NewParser(opts Options) *Parser {
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	if opts.SearchWindow <= 0 {
		opts.SearchWindow = DefaultSearchWindow
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{opts: opts, log: log.Named("bibtex")}
}

// Parse parses src sequentially.
func Parse(src []byte) (*Database, error) {
	return NewParser(Options{}).Parse(src)
}

// ParseString parses src sequentially.
func ParseString(src string) (*Database, error) {
	return NewParser(Options{}).ParseString(src)
}

// Parse parses src without copying it. src must not be modified while the
// returned Database is in use.
func (p *Parser) Parse(src []byte) (*Database, error) {
	return p.ParseString(viewString(src))
}

func (p *Parser) ParseString(src string) (*Database, error) {
	db, err := p.parse(src)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.locate(src)
		}
		return nil, err
	}
	return db, nil
}

// workers returns the pool size, or 0 for sequential mode.
func (p *Parser) workers() int {
	switch {
	case p.opts.Threads == 0:
		return 0
	case p.opts.Threads < 0:
		return runtime.GOMAXPROCS(0)
	default:
		return p.opts.Threads
	}
}

func (p *Parser) parse(src string) (*Database, error) {
	stats := ParseStats{Bytes: len(src)}
	begin := time.Now()

	workers := p.workers()
	stats.Threads = max(workers, 1)
	chunks := []Chunk{{Start: 0, End: len(src)}}
	if workers > 0 {
		var err error
		chunks, err = SplitChunks(src, workers, SplitOptions{
			MinChunkSize: p.opts.MinChunkSize,
			SearchWindow: p.opts.SearchWindow,
		})
		if err != nil {
			p.log.Debug("input not splittable, using one chunk", zap.Error(err))
		}
	}
	stats.Split = time.Since(begin)
	stats.Chunks = len(chunks)
	p.log.Debug("chunk plan", zap.Int("bytes", len(src)), zap.Int("workers", workers), zap.Int("chunks", len(chunks)))

	mark := time.Now()
	results, err := p.parseChunks(src, chunks, stats.Threads)
	if err != nil && len(chunks) > 1 {
		p.log.Debug("chunked parse failed, parsing as one chunk", zap.Error(err))
		stats.Fallback = true
		chunks = []Chunk{{Start: 0, End: len(src)}}
		stats.Chunks = 1
		results, err = p.parseChunks(src, chunks, 1)
	}
	if err != nil {
		return nil, err
	}
	stats.Parse = time.Since(mark)

	mark = time.Now()
	defs := make([][]*StringDef, len(results))
	for i, r := range results {
		defs[i] = r.defs
	}
	table, warnings, err := buildStringTable(src, defs, &p.opts)
	if err != nil {
		return nil, err
	}
	if err := p.expandChunks(src, results, table, stats.Threads); err != nil {
		return nil, err
	}
	stats.Expand = time.Since(mark)

	mark = time.Now()
	db := assemble(src, results, table, warnings, &p.opts)
	stats.Index = time.Since(mark)
	stats.Total = time.Since(begin)
	stats.Records = len(db.records)
	stats.Entries = len(db.entries)
	stats.Strings = len(table.names)
	stats.Warnings = len(db.warnings)
	db.stats = stats

	p.log.Debug("parsed",
		zap.Int("entries", stats.Entries),
		zap.Int("records", stats.Records),
		zap.Int("chunks", stats.Chunks),
		zap.Bool("fallback", stats.Fallback),
		zap.Duration("parse", stats.Parse),
		zap.Duration("expand", stats.Expand),
		zap.Duration("index", stats.Index),
	)
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveParse(stats)
	}
	return db, nil
}

// parseChunks runs the record parser over every chunk. The first error in
// chunk order wins; a failing chunk cancels the chunks still running.
func (p *Parser) parseChunks(src string, chunks []Chunk, workers int) ([]*chunkResult, error) {
	results := make([]*chunkResult, len(chunks))
	if len(chunks) == 1 {
		err := safeExecute(func() error {
			r, err := parseChunk(context.Background(), src, chunks[0].Start, chunks[0].End)
			results[0] = r
			return err
		})
		return results, err
	}

	errs := make([]error, len(chunks))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			errs[i] = safeExecute(func() error {
				r, err := parseChunk(ctx, src, c.Start, c.End)
				results[i] = r
				return err
			})
			return errs[i]
		})
	}
	_ = g.Wait()
	return results, firstError(errs)
}

// expandChunks resolves values chunk by chunk against the merged table.
func (p *Parser) expandChunks(src string, results []*chunkResult, table *stringTable, workers int) error {
	run := func(r *chunkResult) error {
		return safeExecute(func() error {
			x := newExpander(src, &p.opts, table)
			err := x.expandRecords(r.records)
			r.warnings = x.warnings
			return err
		})
	}
	if len(results) == 1 {
		return run(results[0])
	}
	errs := make([]error, len(results))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			errs[i] = run(r)
			return nil
		})
	}
	_ = g.Wait()
	return firstError(errs)
}

// firstError prefers a ParseError, earliest chunk first, over the
// cancellation errors of its siblings.
func firstError(errs []error) error {
	var other error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var pe *ParseError
		if errors.As(err, &pe) {
			return err
		}
		if other == nil {
			other = err
		}
	}
	return other
}

// safeExecute turns a panic in fn into a KindInternal error.
func safeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{
				Kind:    KindInternal,
				Message: fmt.Sprintf("panic during parse: %v", r),
				Cause:   fmt.Errorf("%v", r),
			}
		}
	}()
	return fn()
}
