package index

import (
	"strings"

	"github.com/ricesearch/rice-insight/internal/metadata"
	"github.com/ricesearch/rice-insight/internal/pkg/hash"
)

// ChunkerConfig sizes line windows.
type ChunkerConfig struct {
	// Lines is the target window size in lines.
	Lines int

	// Overlap is the number of lines repeated at the start of the next window.
	Overlap int
}

// DefaultChunkerConfig returns the default window size.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{Lines: 40, Overlap: 5}
}

// Chunk is one searchable window of a document. Lines are 1-based and inclusive.
type Chunk struct {
	ID         string   `json:"id"`
	SnapshotID string   `json:"snapshot_id"`
	Path       string   `json:"path"`
	Language   string   `json:"language"`
	Content    string   `json:"content"`
	Symbols    []string `json:"symbols"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Hash       string   `json:"hash"`
}

// Chunker splits documents into overlapping line windows.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a chunker. Invalid sizes fall back to the defaults; a
// config without a window size takes the default overlap too unless one is set.
func NewChunker(cfg ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if cfg.Lines <= 0 {
		cfg.Lines = def.Lines
		if cfg.Overlap == 0 {
			cfg.Overlap = def.Overlap
		}
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Lines {
		cfg.Overlap = min(def.Overlap, cfg.Lines-1)
	}
	return &Chunker{config: cfg}
}

// Chunk splits a document. A window ending mid-block is shortened to the
// last blank line in its second half. Blank windows are dropped.
func (c *Chunker) Chunk(snapshotID string, doc *Document) []Chunk {
	lines := strings.Split(strings.TrimRight(doc.Content, "\n"), "\n")
	n := len(lines)
	size := c.config.Lines

	var chunks []Chunk
	for start := 0; start < n; {
		end := min(start+size, n)
		if end < n {
			for i := end - 1; i > start+size/2; i-- {
				if strings.TrimSpace(lines[i]) == "" {
					end = i + 1
					break
				}
			}
		}

		if content := strings.Join(lines[start:end], "\n"); strings.TrimSpace(content) != "" {
			chunks = append(chunks, Chunk{
				ID:         hash.ChunkID(snapshotID, doc.Path, start+1, end),
				SnapshotID: snapshotID,
				Path:       doc.Path,
				Language:   doc.Language,
				Content:    content,
				Symbols:    metadata.ExtractSymbols(content, doc.Language),
				StartLine:  start + 1,
				EndLine:    end,
				Hash:       hash.SHA256String(content),
			})
		}

		if end == n {
			break
		}
		next := end - c.config.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
