package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ricesearch/rice-insight/internal/batch"
	"github.com/ricesearch/rice-insight/internal/bus"
	"github.com/ricesearch/rice-insight/internal/metadata"
	"github.com/ricesearch/rice-insight/internal/ml"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
	"github.com/ricesearch/rice-insight/internal/qdrant"
	"github.com/ricesearch/rice-insight/internal/store"
)

const snippetLength = 240

// VectorWriter stores chunk vectors.
type VectorWriter interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
}

// Config configures the indexer.
type Config struct {
	ChunkLines   int
	ChunkOverlap int
	MaxFileSize  int64

	// Batch controls per-file concurrency, timeouts and retries.
	Batch batch.Config
}

// DefaultConfig returns the default indexer configuration.
func DefaultConfig() Config {
	def := DefaultChunkerConfig()
	return Config{
		ChunkLines:   def.Lines,
		ChunkOverlap: def.Overlap,
		MaxFileSize:  MaxDocumentSize,
		Batch:        batch.DefaultConfig(),
	}
}

// Deps are the indexer's collaborators. Metadata and Bus are optional.
type Deps struct {
	Embedder ml.Embedder
	Vectors  VectorWriter
	Content  store.Store
	Metadata metadata.Store
	Bus      bus.Bus
}

// File is one input file.
type File struct {
	Path       string
	Content    string
	ModifiedAt time.Time
}

// FileError records why a file was not indexed.
type FileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result summarises an indexing run.
type Result struct {
	SnapshotID string        `json:"snapshot_id"`
	Files      int           `json:"files"`
	Chunks     int           `json:"chunks"`
	Bytes      int64         `json:"bytes"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Errors     []FileError   `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Indexer chunks, embeds and stores snapshot files.
type Indexer struct {
	config   Config
	deps     Deps
	chunker  *Chunker
	analyzer *metadata.Analyzer
	log      *logger.Logger
}

// NewIndexer creates an indexer. Embedder, Vectors and Content are required.
func NewIndexer(cfg Config, deps Deps, log *logger.Logger) (*Indexer, error) {
	if deps.Embedder == nil || deps.Vectors == nil || deps.Content == nil {
		return nil, errors.ValidationError("indexer requires an embedder, a vector index and a content store")
	}
	if log == nil {
		log = logger.Discard()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = MaxDocumentSize
	}
	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch = batch.DefaultConfig()
	}

	return &Indexer{
		config:   cfg,
		deps:     deps,
		chunker:  NewChunker(ChunkerConfig{Lines: cfg.ChunkLines, Overlap: cfg.ChunkOverlap}),
		analyzer: metadata.NewAnalyzer(),
		log:      log.WithComponent("index"),
	}, nil
}

// Index indexes files into a snapshot. Per-file failures are reported in the
// result; the returned error is reserved for invalid input and snapshot
// bookkeeping failures.
func (ix *Indexer) Index(ctx context.Context, snapshotID string, files []File) (*Result, error) {
	return ix.index(ctx, snapshotID, "", files, 0)
}

// IndexDir walks root and indexes every supported file under it. Hidden
// directories and dependency folders are skipped.
func (ix *Indexer) IndexDir(ctx context.Context, snapshotID, root string) (*Result, error) {
	files, skipped, err := ix.collect(ctx, root)
	if err != nil {
		return nil, err
	}
	return ix.index(ctx, snapshotID, root, files, skipped)
}

func (ix *Indexer) index(ctx context.Context, snapshotID, root string, files []File, skipped int) (*Result, error) {
	if err := store.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}

	start := time.Now()
	log := ix.log.WithContext(ctx)
	res := &Result{SnapshotID: snapshotID, Skipped: skipped}

	docs := make([]*Document, 0, len(files))
	for _, f := range files {
		doc := NewDocument(filepath.ToSlash(f.Path), f.Content, f.ModifiedAt)
		if err := ValidateDocument(doc); err != nil {
			res.Skipped++
			log.Debug("Skipping file", "path", doc.Path, "reason", err.Error())
			continue
		}
		docs = append(docs, doc)
	}

	usage := newUsageCounter(docs)

	results := batch.Run(ctx, ix.config.Batch, ix.log, docs, func(ctx context.Context, doc *Document) (int, error) {
		return ix.indexDocument(ctx, snapshotID, doc, usage)
	})

	for i, r := range results {
		if r.Err != nil {
			res.Failed++
			res.Errors = append(res.Errors, FileError{Path: docs[i].Path, Message: r.Err.Error()})
			log.Warn("Failed to index file", "path", docs[i].Path, "attempts", r.Attempts, "error", r.Err)
			continue
		}
		res.Files++
		res.Chunks += r.Value
		res.Bytes += docs[i].Size
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := store.Snapshot{
		ID:        snapshotID,
		Root:      root,
		Files:     res.Files,
		Chunks:    res.Chunks,
		Bytes:     res.Bytes,
		IndexedAt: time.Now().UTC(),
	}
	if err := ix.deps.Content.SaveSnapshot(ctx, snap); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to save snapshot", err)
	}

	res.Duration = time.Since(start)

	log.Info("Indexing complete",
		"snapshot", snapshotID,
		"files", res.Files,
		"chunks", res.Chunks,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration_ms", res.Duration.Milliseconds(),
	)

	ix.publishIndexEvent(ctx, res)

	return res, nil
}

// indexDocument is safe to retry: chunk IDs are deterministic, so a repeated
// attempt overwrites the points of the previous one.
func (ix *Indexer) indexDocument(ctx context.Context, snapshotID string, doc *Document, usage *usageCounter) (int, error) {
	chunks := ix.chunker.Chunk(snapshotID, doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	points := make([]qdrant.Point, 0, len(chunks))
	for _, c := range chunks {
		vec, err := ix.deps.Embedder.Embed(ctx, c.Content, doc.Language)
		if err != nil {
			return 0, err
		}

		if ix.deps.Metadata != nil {
			rec := ix.analyzer.Analyze(metadata.Input{
				Path:       doc.Path,
				Language:   doc.Language,
				Content:    c.Content,
				ModifiedAt: doc.ModifiedAt,
			})
			rec.Enhanced.UsageFrequency = usage.references(c)
			if err := ix.deps.Metadata.Put(ctx, c.ID, rec); err != nil {
				return 0, err
			}
		}

		points = append(points, qdrant.Point{
			ID:     c.ID,
			Vector: vec,
			Payload: qdrant.Payload{
				SnapshotID: snapshotID,
				Path:       c.Path,
				Language:   c.Language,
				Symbols:    c.Symbols,
				StartLine:  c.StartLine,
				EndLine:    c.EndLine,
				Snippet:    snippet(c.Content),
				ChunkHash:  c.Hash,
				IndexedAt:  now,
			},
		})
	}

	if err := ix.deps.Content.PutFile(ctx, snapshotID, doc.Path, doc.Content); err != nil {
		return 0, err
	}
	if err := ix.deps.Vectors.Upsert(ctx, points); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

func (ix *Indexer) publishIndexEvent(ctx context.Context, res *Result) {
	if ix.deps.Bus == nil {
		return
	}

	event := bus.NewEvent(bus.TopicIndexCompleted, "index", bus.IndexCompletedPayload{
		SnapshotID: res.SnapshotID,
		Files:      res.Files,
		Chunks:     res.Chunks,
		Failed:     res.Failed,
		DurationMs: res.Duration.Milliseconds(),
	})
	if id := logger.RequestIDFromContext(ctx); id != "" {
		event = event.WithCorrelation(id)
	}

	if err := ix.deps.Bus.Publish(ctx, bus.TopicIndexCompleted, event); err != nil {
		ix.log.WithContext(ctx).Warn("Failed to publish index event", "error", err)
	}
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

// collect reads indexable files under root. Unsupported, oversized and
// binary files are counted as skipped.
func (ix *Indexer) collect(ctx context.Context, root string) ([]File, int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, errors.NotFoundError("directory").WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, 0, errors.ValidationError("index root must be a directory").WithDetail("path", root)
	}

	var files []File
	skipped := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if p != root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || DetectLanguage(name) == LanguageUnknown {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > ix.config.MaxFileSize {
			skipped++
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if !utf8.Valid(data) {
			skipped++
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Content: string(data), ModifiedAt: fi.ModTime()})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, errors.InternalError("failed to walk directory", err)
	}

	return files, skipped, nil
}

func snippet(content string) string {
	if len(content) <= snippetLength {
		return content
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// usageCounter counts identifier occurrences across a snapshot so a chunk's
// usage frequency is the number of references to its symbols made elsewhere.
type usageCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newUsageCounter(docs []*Document) *usageCounter {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, id := range identifierPattern.FindAllString(doc.Content, -1) {
			counts[id]++
		}
	}
	return &usageCounter{counts: counts}
}

func (u *usageCounter) references(c Chunk) int {
	if len(c.Symbols) == 0 {
		return 0
	}

	local := make(map[string]int, len(c.Symbols))
	for _, id := range identifierPattern.FindAllString(c.Content, -1) {
		local[id]++
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	total := 0
	for _, sym := range c.Symbols {
		total += max(u.counts[sym]-local[sym], 0)
	}
	return total
}
