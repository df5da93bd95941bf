// Package index splits source files into line-window chunks, embeds them and
// writes vectors, content and metadata for a snapshot.
package index

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/hash"
)

// Document is a source file to be indexed.
type Document struct {
	Path       string    `json:"path"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewDocument creates a document, detecting its language from the path.
func NewDocument(filePath, content string, modifiedAt time.Time) *Document {
	return &Document{
		Path:       filePath,
		Content:    content,
		Language:   DetectLanguage(filePath),
		Hash:       hash.SHA256String(content),
		Size:       int64(len(content)),
		ModifiedAt: modifiedAt,
	}
}

// LanguageUnknown is reported for files that are not indexed.
const LanguageUnknown = "unknown"

var languageExtensions = map[string]string{
	".go":    "go",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".scala": "scala",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".sh":    "bash",
	".sql":   "sql",
	".proto": "protobuf",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
}

// DetectLanguage maps a file path to a language name, or LanguageUnknown.
func DetectLanguage(filePath string) string {
	if lang, ok := languageExtensions[strings.ToLower(path.Ext(filePath))]; ok {
		return lang
	}

	switch base := strings.ToLower(path.Base(filePath)); {
	case base == "dockerfile", strings.HasPrefix(base, "dockerfile."):
		return "dockerfile"
	case base == "makefile", base == "gnumakefile":
		return "makefile"
	}

	return LanguageUnknown
}

// Content limits.
const (
	MaxDocumentSize = 2 * 1024 * 1024
	MaxPathLength   = 1024
)

// ValidateDocument checks that a document can be indexed.
func ValidateDocument(doc *Document) error {
	switch {
	case doc.Path == "":
		return errors.ValidationError("document path cannot be empty")
	case len(doc.Path) > MaxPathLength:
		return errors.ValidationError(fmt.Sprintf("path exceeds maximum length of %d", MaxPathLength))
	case doc.Size > MaxDocumentSize:
		return errors.ValidationError(fmt.Sprintf("document size %d exceeds maximum of %d bytes", doc.Size, MaxDocumentSize))
	case doc.Language == LanguageUnknown:
		return errors.ValidationError("unsupported file type").WithDetail("path", doc.Path)
	case strings.TrimSpace(doc.Content) == "":
		return errors.ValidationError("document is empty").WithDetail("path", doc.Path)
	}
	return nil
}
