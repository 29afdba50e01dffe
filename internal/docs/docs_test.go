package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoader_LoadKnowledgeDir(t *testing.T) {
	t.Run("loads supported files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "guide.md", "# Setup guide\nInstall the thing.")
		writeFile(t, dir, "notes.txt", "plain notes")
		writeFile(t, dir, "binary.exe", "ignored")

		loader := NewLoader(nil, nil)
		docs, stats, err := loader.LoadKnowledgeDir(dir)
		if err != nil {
			t.Fatalf("LoadKnowledgeDir() error: %v", err)
		}

		if len(docs) != 2 {
			t.Fatalf("len(docs) = %d, want 2", len(docs))
		}
		if stats.FilesLoaded != 2 {
			t.Errorf("FilesLoaded = %d, want 2", stats.FilesLoaded)
		}
		if stats.FilesSkipped != 1 {
			t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
		}

		for _, doc := range docs {
			if doc.Metadata[MetaSourceType] != SourceTypeFile {
				t.Errorf("source_type = %q", doc.Metadata[MetaSourceType])
			}
			if doc.Metadata[MetaFileName] == "" {
				t.Error("file_name metadata missing")
			}
			if !strings.HasPrefix(doc.ID, "doc_") {
				t.Errorf("unexpected ID format: %q", doc.ID)
			}
		}
	})

	t.Run("skips oversized files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "big.txt", strings.Repeat("x", MaxFileSizeForEmbedding+1))
		writeFile(t, dir, "ok.txt", "small")

		loader := NewLoader(nil, nil)
		docs, stats, err := loader.LoadKnowledgeDir(dir)
		if err != nil {
			t.Fatalf("LoadKnowledgeDir() error: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("len(docs) = %d, want 1", len(docs))
		}
		if stats.FilesSkipped != 1 {
			t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
		}
	})

	t.Run("skips empty files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "empty.txt", "   \n  ")

		loader := NewLoader(nil, nil)
		docs, _, err := loader.LoadKnowledgeDir(dir)
		if err != nil {
			t.Fatalf("LoadKnowledgeDir() error: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("len(docs) = %d, want 0", len(docs))
		}
	})

	t.Run("honors gitignore", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".gitignore", "secret.txt\n")
		writeFile(t, dir, "secret.txt", "hidden")
		writeFile(t, dir, "public.txt", "visible")

		loader := NewLoader(nil, nil)
		docs, _, err := loader.LoadKnowledgeDir(dir)
		if err != nil {
			t.Fatalf("LoadKnowledgeDir() error: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("len(docs) = %d, want 1", len(docs))
		}
		if docs[0].Metadata[MetaFileName] != "public.txt" {
			t.Errorf("loaded %q, want public.txt", docs[0].Metadata[MetaFileName])
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		loader := NewLoader(nil, nil)
		if _, _, err := loader.LoadKnowledgeDir(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("LoadKnowledgeDir() expected error for missing directory")
		}
	})

	t.Run("custom extension allowlist", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.rst", "restructured text")
		writeFile(t, dir, "b.md", "markdown")

		loader := NewLoader([]string{".rst"}, nil)
		docs, _, err := loader.LoadKnowledgeDir(dir)
		if err != nil {
			t.Fatalf("LoadKnowledgeDir() error: %v", err)
		}
		if len(docs) != 1 || docs[0].Metadata[MetaFileName] != "a.rst" {
			t.Errorf("docs = %+v, want only a.rst", docs)
		}
	})
}

func TestLoader_LoadIntentDir(t *testing.T) {
	t.Run("parses pairs into documents", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "faq.txt", "Q: How to log in?\nA: Use SSO.\nQ: How to log out?\nA: Click sign out.")
		writeFile(t, dir, "skip.pdf", "not a qa file")

		loader := NewLoader(nil, nil)
		docs, err := loader.LoadIntentDir(dir)
		if err != nil {
			t.Fatalf("LoadIntentDir() error: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("len(docs) = %d, want 2", len(docs))
		}

		if docs[0].Content != "How to log in?" {
			t.Errorf("content = %q", docs[0].Content)
		}
		if docs[0].Metadata[MetaAnswer] != "Use SSO." {
			t.Errorf("answer = %q", docs[0].Metadata[MetaAnswer])
		}
		if docs[0].Metadata[MetaSourceType] != SourceTypeCurated {
			t.Errorf("source_type = %q", docs[0].Metadata[MetaSourceType])
		}
		if docs[0].ID == docs[1].ID {
			t.Error("pair IDs must be unique within a file")
		}
	})

	t.Run("empty directory yields no documents", func(t *testing.T) {
		loader := NewLoader(nil, nil)
		docs, err := loader.LoadIntentDir(t.TempDir())
		if err != nil {
			t.Fatalf("LoadIntentDir() error: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("len(docs) = %d, want 0", len(docs))
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		loader := NewLoader(nil, nil)
		if _, err := loader.LoadIntentDir(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("LoadIntentDir() expected error for missing directory")
		}
	})
}

func TestPlaceholderDocument(t *testing.T) {
	doc := PlaceholderDocument("intent_space")

	if doc.Content == "" {
		t.Error("placeholder content must not be empty")
	}
	if doc.Metadata[MetaPlaceholder] != "true" {
		t.Error("placeholder flag missing")
	}
	if doc.Metadata[MetaAnswer] != "" {
		t.Error("placeholder answer must be empty")
	}

	// Same collection, same ID: rebuilds overwrite rather than accumulate.
	if doc.ID != PlaceholderDocument("intent_space").ID {
		t.Error("placeholder ID must be stable")
	}
	if doc.ID == PlaceholderDocument("knowledge_space").ID {
		t.Error("placeholder IDs must differ per collection")
	}
}
