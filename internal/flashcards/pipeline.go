package flashcards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/flashcache"
)

var ErrEmptyDocument = errors.New("flashcards: document has no text")

// DefaultConcurrency is how many documents ProcessAll works on at once.
const DefaultConcurrency = 4

// Document is the extracted text of one input file.
type Document struct {
	Name string
	Text string
}

// Result is the flashcard set produced for a document.
type Result struct {
	Name     string
	Key      flashcache.Key
	Location string
	Cards    []Card
	Cached   bool
}

// Pipeline turns documents into flashcards, consulting the cache before
// calling the generator.
type Pipeline struct {
	cache       flashcache.Cache
	generator   Generator
	prompt      string
	chunkSize   int
	concurrency int
	logger      *slog.Logger
}

type Option func(*Pipeline)

func WithPrompt(prompt string) Option {
	return func(p *Pipeline) { p.prompt = prompt }
}

func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPipeline(cache flashcache.Cache, generator Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:       cache,
		generator:   generator,
		chunkSize:   DefaultChunkSize,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns the cached flashcards for doc, generating and caching
// them on a miss.
func (p *Pipeline) Process(ctx context.Context, doc Document) (*Result, error) {
	text := CleanText(doc.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", doc.Name, ErrEmptyDocument)
	}
	key := flashcache.HashText(text)

	loc, ok, err := p.cache.Lookup(ctx, key)
	if errors.Is(err, flashcache.ErrEvictionPending) {
		// Caught mid-eviction: finish it and treat the document as a miss.
		if _, err := p.cache.Recover(ctx); err != nil {
			return nil, err
		}
		ok, err = false, nil
	}
	if err != nil {
		return nil, err
	}
	if ok {
		cards, err := p.readCards(loc)
		if err != nil {
			return nil, fmt.Errorf("%s: read cached result: %w", doc.Name, err)
		}
		p.logger.Debug("cache hit", "doc", doc.Name, "key", key.Short())
		return &Result{Name: doc.Name, Key: key, Location: loc, Cards: cards, Cached: true}, nil
	}

	p.logger.Info("cache miss, generating", "doc", doc.Name, "key", key.Short())
	cards, loc, err := p.produce(ctx, key, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}

	if err := p.cache.Insert(ctx, key, loc); err != nil {
		p.discard(ctx, key, loc)
		if errors.Is(err, flashcache.ErrDuplicateKey) {
			// Another caller cached the same text first; use theirs.
			return p.Process(ctx, doc)
		}
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}
	return &Result{Name: doc.Name, Key: key, Location: loc, Cards: cards}, nil
}

// Regenerate always calls the generator and re-points the cache entry at
// the new result. The superseded artifact is removed.
func (p *Pipeline) Regenerate(ctx context.Context, doc Document) (*Result, error) {
	text := CleanText(doc.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", doc.Name, ErrEmptyDocument)
	}
	key := flashcache.HashText(text)

	cards, loc, err := p.produce(ctx, key, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}

	old, exists, err := p.cache.Stat(ctx, key)
	if err != nil {
		p.discard(ctx, key, loc)
		return nil, err
	}

	if exists {
		err = p.cache.Refresh(ctx, key, loc)
		if err == nil {
			if old.Location != loc {
				if rerr := p.cache.Artifacts().Remove(old.Location); rerr != nil {
					p.logger.Error("superseded artifact not removed, delete it manually",
						"key", key.Short(), "path", old.Location, "err", rerr)
				}
			}
			return &Result{Name: doc.Name, Key: key, Location: loc, Cards: cards}, nil
		}
		if !errors.Is(err, flashcache.ErrNotFound) {
			p.discard(ctx, key, loc)
			return nil, fmt.Errorf("%s: %w", doc.Name, err)
		}
		// Evicted since Stat; fall through to insert.
	}

	if err := p.cache.Insert(ctx, key, loc); err != nil {
		p.discard(ctx, key, loc)
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}
	return &Result{Name: doc.Name, Key: key, Location: loc, Cards: cards}, nil
}

// ProcessAll runs Process (or Regenerate when force is set) over docs with
// bounded concurrency. Results keep the order of docs. The first error
// cancels the remaining work.
func (p *Pipeline) ProcessAll(ctx context.Context, docs []Document, force bool) ([]*Result, error) {
	results := make([]*Result, len(docs))

	wp := pool.New().WithContext(ctx).WithMaxGoroutines(p.concurrency).WithCancelOnError()
	for i, doc := range docs {
		wp.Go(func(ctx context.Context) error {
			var (
				res *Result
				err error
			)
			if force {
				res, err = p.Regenerate(ctx, doc)
			} else {
				res, err = p.Process(ctx, doc)
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// produce generates cards for every chunk of text and writes them as a
// new artifact.
func (p *Pipeline) produce(ctx context.Context, key flashcache.Key, text string) ([]Card, string, error) {
	cards := make([]Card, 0)
	for i, chunk := range Chunk(text, p.chunkSize) {
		got, err := p.generator.Generate(ctx, chunk, p.prompt)
		if err != nil {
			return nil, "", fmt.Errorf("generate chunk %d: %w", i, err)
		}
		cards = append(cards, got...)
	}

	data, err := json.MarshalIndent(cards, "", "    ")
	if err != nil {
		return nil, "", fmt.Errorf("encode cards: %w", err)
	}
	loc, err := p.cache.Artifacts().Write(key.String(), data)
	if err != nil {
		return nil, "", err
	}
	return cards, loc, nil
}

func (p *Pipeline) readCards(loc string) ([]Card, error) {
	data, err := p.cache.Artifacts().Read(loc)
	if err != nil {
		return nil, err
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode %s: %w", loc, err)
	}
	return cards, nil
}

// discard removes an artifact that did not make it into the cache. If the
// cache does point at it (the insert succeeded but eviction failed) it is
// kept.
func (p *Pipeline) discard(ctx context.Context, key flashcache.Key, loc string) {
	if e, ok, err := p.cache.Stat(ctx, key); err == nil && ok && e.Location == loc {
		return
	}
	if err := p.cache.Artifacts().Remove(loc); err != nil {
		p.logger.Error("orphaned artifact not removed, delete it manually", "key", key.Short(), "path", loc, "err", err)
	}
}
