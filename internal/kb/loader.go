package kb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"askerfotball-ai/internal/contextutil"
)

// Document is a single knowledge-base document, flattened to plain text.
type Document struct {
	Path  string // Path relative to the KB root, forward slashes
	Title string // First heading, or the filename stem
	Text  string // Plain text with code blocks dropped and whitespace collapsed
}

// Loader reads markdown and plain-text documents from a knowledge-base directory.
type Loader struct {
	root   string
	parser goldmark.Markdown
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		root: dir,
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Load walks the KB directory and returns all documents in a stable,
// path-sorted order. A missing directory yields zero documents rather
// than an error; documents with no text content are skipped.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := os.Stat(l.root); os.IsNotExist(err) {
		logger.WarnContext(ctx, "knowledge base directory does not exist", "dir", l.root)
		return nil, nil
	}

	var paths []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
	}
	sort.Strings(paths)

	var docs []Document
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		relPath, err := filepath.Rel(l.root, path)
		if err != nil {
			return nil, fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		doc := l.parse(content, relPath)
		if doc.Text == "" {
			logger.DebugContext(ctx, "skipping empty document", "path", relPath)
			continue
		}
		docs = append(docs, doc)
	}

	logger.InfoContext(ctx, "knowledge base loaded", "dir", l.root, "documents", len(docs))
	return docs, nil
}

// parse extracts the title and plain text of a single document.
func (l *Loader) parse(content []byte, relPath string) Document {
	doc := Document{Path: relPath}

	if strings.ToLower(filepath.Ext(relPath)) == ".md" {
		reader := text.NewReader(content)
		root := l.parser.Parser().Parse(reader)
		doc.Title = extractTitle(root, content, relPath)
		doc.Text = flattenText(root, content)
		return doc
	}

	// Plain text files: filename stem as title, collapsed whitespace as body.
	doc.Title = titleFromFilename(relPath)
	doc.Text = collapseWhitespace(string(content))
	return doc
}

// extractTitle picks the document title: the first level-1 heading, the
// first level-2 heading if there is no level-1, otherwise the filename stem.
func extractTitle(root ast.Node, content []byte, relPath string) string {
	var h1, h2 string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		txt := collapseWhitespace(string(nodeText(heading, content)))
		if txt == "" {
			return ast.WalkContinue, nil
		}
		switch heading.Level {
		case 1:
			if h1 == "" {
				h1 = txt
				return ast.WalkStop, nil
			}
		case 2:
			if h2 == "" {
				h2 = txt
			}
		}
		return ast.WalkContinue, nil
	})

	if h1 != "" {
		return h1
	}
	if h2 != "" {
		return h2
	}
	return titleFromFilename(relPath)
}

// flattenText renders the document as plain text. Code blocks are
// dropped entirely; everything else is joined with single spaces.
func flattenText(root ast.Node, content []byte) string {
	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(n.(*ast.Text).Segment.Value(content))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return collapseWhitespace(sb.String())
}

// nodeText collects the raw text under a node.
func nodeText(n ast.Node, content []byte) []byte {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(content)...)
			out = append(out, ' ')
		} else {
			out = append(out, nodeText(c, content)...)
		}
	}
	return out
}

func titleFromFilename(relPath string) string {
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return "Uten tittel"
	}
	return stem
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
