// Package docs loads review and response files from a directory.
package docs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joescharf/rebuttal/internal/models"
	"github.com/joescharf/rebuttal/internal/reconcile"
)

// ErrNotDir is returned when an input path exists but is not a directory.
var ErrNotDir = errors.New("not a directory")

// LoadDir reads every regular, non-hidden file directly inside dir and keys it
// under mode. HTML files are reduced to their visible text. Two files that
// produce the same key are an error.
func LoadDir(dir string, mode reconcile.MatchMode) ([]models.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	seen := make(map[string]string, len(entries))
	docs := make([]models.Document, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}

		key := reconcile.Key(name, mode)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%s: %s and %s both map to key %q", dir, prev, name, key)
		}
		seen[key] = name

		text, err := ReadText(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Name: name, Key: key, Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// ReadText returns the text content of a file, extracting visible text from HTML.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if isHTML(path) {
		text, err := htmlText(data)
		if err != nil {
			return "", fmt.Errorf("parse html %s: %w", path, err)
		}
		return text, nil
	}
	return string(data), nil
}

// LoadPaper reads the optional paper. PDFs are kept as bytes for attachment;
// anything else is read as text.
func LoadPaper(path string) (*models.Paper, error) {
	if path == "" {
		return nil, nil
	}
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read paper: %w", err)
		}
		return &models.Paper{Name: name, PDF: data}, nil
	}
	text, err := ReadText(path)
	if err != nil {
		return nil, fmt.Errorf("read paper: %w", err)
	}
	return &models.Paper{Name: name, Text: text}, nil
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// blockSep marks block boundaries while the document is still HTML, so that
// newlines inside a paragraph can be collapsed without merging paragraphs.
const blockSep = "\u2029"

// htmlText keeps block structure as line breaks so review sections stay apart.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml(blockSep)
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(blockSep)
	})

	var lines []string
	for _, block := range strings.Split(doc.Text(), blockSep) {
		block = strings.Join(strings.Fields(block), " ")
		if block != "" {
			lines = append(lines, block)
		}
	}
	return strings.Join(lines, "\n"), nil
}
