// Package docs loads source material from disk for indexing.
//
// Two directory layouts feed the retrieval spaces: the knowledge directory
// holds free-form documents (text, markdown, PDF) indexed whole, and the
// intent directory holds Q:/A: formatted files whose questions are embedded
// with the answers carried in metadata.
package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/log"
)

// Metadata keys attached to loaded documents.
const (
	MetaAnswer      = "answer"
	MetaFileName    = "file_name"
	MetaFilePath    = "file_path"
	MetaSourceType  = "source_type"
	MetaPlaceholder = "placeholder"
)

// Source type values for MetaSourceType.
const (
	SourceTypeFile     = "file"
	SourceTypeCurated  = "curated"
	SourceTypeFeedback = "feedback"
)

// MaxFileSizeForEmbedding is the largest file indexed whole. Embedding
// models truncate input around the 2048-token mark, which is roughly 8KB
// of text; larger files would silently lose their tail.
const MaxFileSizeForEmbedding = 8 * 1024

// defaultKnowledgeExtensions are the file types the knowledge loader reads.
var defaultKnowledgeExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".html": true,
}

// qaExtensions are the file types the intent loader parses for Q/A pairs.
var qaExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// LoadStats summarizes one directory load.
type LoadStats struct {
	FilesLoaded  int
	FilesSkipped int
	FilesFailed  int
	TotalSize    int64
	Duration     time.Duration
}

// Loader reads documents from configured directories.
type Loader struct {
	extensions map[string]bool
	logger     log.Logger
}

// NewLoader creates a Loader. extensions overrides the default knowledge
// file allowlist when non-empty; logger may be nil.
func NewLoader(extensions []string, logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNop()
	}

	extMap := make(map[string]bool, len(defaultKnowledgeExtensions))
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		for k, v := range defaultKnowledgeExtensions {
			extMap[k] = v
		}
	}

	return &Loader{extensions: extMap, logger: logger}
}

// LoadKnowledgeDir walks dir and returns one document per supported file.
// Files matched by a .gitignore in dir, unsupported extensions, and files
// over the embedding size limit are skipped. Unreadable files are counted
// as failures without aborting the walk. An empty result is returned as-is;
// callers decide whether to substitute a placeholder.
func (l *Loader) LoadKnowledgeDir(dir string) ([]index.Document, *LoadStats, error) {
	start := time.Now()
	stats := &LoadStats{}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving directory path: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, nil, fmt.Errorf("reading knowledge directory: %w", err)
	}

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(absDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		if gi, err := ignore.CompileIgnoreFile(gitignorePath); err == nil {
			gitIgnore = gi
		}
	}

	var documents []index.Document
	walkErr := filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			stats.FilesFailed++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			stats.FilesFailed++
			return nil
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			stats.FilesSkipped++
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !l.extensions[ext] {
			stats.FilesSkipped++
			return nil
		}
		if ext != ".pdf" && info.Size() > MaxFileSizeForEmbedding {
			l.logger.Warn("file exceeds embedding size limit, skipping",
				"file", relPath, "size", info.Size())
			stats.FilesSkipped++
			return nil
		}

		content, err := l.readFile(path, ext)
		if err != nil {
			l.logger.Warn("failed to read file", "file", relPath, "error", err)
			stats.FilesFailed++
			return nil
		}
		if strings.TrimSpace(content) == "" {
			stats.FilesSkipped++
			return nil
		}

		documents = append(documents, index.Document{
			ID:      docID(path),
			Content: content,
			Metadata: map[string]string{
				MetaSourceType: SourceTypeFile,
				MetaFilePath:   path,
				MetaFileName:   filepath.Base(path),
			},
			CreateAt: time.Now(),
		})
		stats.FilesLoaded++
		stats.TotalSize += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walking knowledge directory: %w", walkErr)
	}

	stats.Duration = time.Since(start)
	l.logger.Info("knowledge directory loaded",
		"dir", absDir,
		"loaded", stats.FilesLoaded,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed)
	return documents, stats, nil
}

// LoadIntentDir parses every Q/A file in dir and returns one document per
// pair: the question is the embeddable content and the answer travels in
// metadata. Files that fail to parse are logged and skipped.
func (l *Loader) LoadIntentDir(dir string) ([]index.Document, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("reading intent directory: %w", err)
	}

	var documents []index.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !qaExtensions[ext] {
			continue
		}

		path := filepath.Join(absDir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			l.logger.Warn("failed to open Q/A file", "file", entry.Name(), "error", err)
			continue
		}
		pairs, err := ParseQAPairs(f)
		closeErr := f.Close()
		if err != nil {
			l.logger.Warn("failed to parse Q/A file", "file", entry.Name(), "error", err)
			continue
		}
		if closeErr != nil {
			l.logger.Warn("failed to close Q/A file", "file", entry.Name(), "error", closeErr)
		}

		for i, pair := range pairs {
			documents = append(documents, index.Document{
				ID:      docID(fmt.Sprintf("%s#%d", path, i)),
				Content: pair.Question,
				Metadata: map[string]string{
					MetaAnswer:     pair.Answer,
					MetaFileName:   entry.Name(),
					MetaSourceType: SourceTypeCurated,
				},
				CreateAt: time.Now(),
			})
		}
		l.logger.Debug("parsed Q/A file", "file", entry.Name(), "pairs", len(pairs))
	}

	return documents, nil
}

// PlaceholderDocument returns the single document indexed when a space
// would otherwise be empty, so index creation always has something to
// embed. Its answer metadata is empty and it is flagged as a placeholder,
// which keeps it from ever being served as a real answer.
func PlaceholderDocument(collection string) index.Document {
	return index.Document{
		ID:      docID("placeholder:" + collection),
		Content: "This is an empty placeholder document.",
		Metadata: map[string]string{
			MetaAnswer:      "",
			MetaPlaceholder: "true",
			MetaSourceType:  SourceTypeCurated,
		},
		CreateAt: time.Now(),
	}
}

// readFile returns the embeddable text of a file. PDFs are converted to
// plain text and truncated to the embedding size limit.
func (l *Loader) readFile(path, ext string) (string, error) {
	if ext == ".pdf" {
		text, err := extractPDFText(path)
		if err != nil {
			return "", err
		}
		if len(text) > MaxFileSizeForEmbedding {
			text = text[:MaxFileSizeForEmbedding]
		}
		return text, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// docID derives a stable document ID from a source identifier.
func docID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "doc_" + hex.EncodeToString(hash[:16])
}
