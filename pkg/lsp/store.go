package lsp

import (
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DocumentStore is a thread-safe store for document contents keyed by URI.
type DocumentStore struct {
	documents map[string]string // URI -> content.
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]string),
	}
}

// Set stores document content for the given URI.
func (ds *DocumentStore) Set(uri, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = content
}

// Get retrieves document content by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	content, ok := ds.documents[uri]

	return content, ok
}

// Delete removes document content by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// Apply updates the stored content with a batch of content changes and
// returns the result. Unknown change types are ignored.
func (ds *DocumentStore) Apply(uri string, changes []any) string {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	text := ds.documents[uri]

	for _, change := range changes {
		switch typed := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = typed.Text
		case protocol.TextDocumentContentChangeEvent:
			if typed.Range == nil {
				text = typed.Text

				continue
			}

			start := offsetAt(text, typed.Range.Start)
			end := max(offsetAt(text, typed.Range.End), start)
			text = text[:start] + typed.Text + text[end:]
		}
	}

	ds.documents[uri] = text

	return text
}

// offsetAt converts an LSP position (UTF-16 code units) to a byte offset,
// clamping to the end of the line or document.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0

	for range pos.Line {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}

		offset += next + 1
	}

	units := int(pos.Character)

	for units > 0 && offset < len(text) {
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == '\n' {
			break
		}

		units -= utf16.RuneLen(r)
		offset += size
	}

	return offset
}

// lineAt returns line n (0-based) without its terminator.
func lineAt(text string, n int) string {
	lines := strings.Split(text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}

	return strings.TrimSuffix(lines[n], "\r")
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	total := 0

	for _, r := range s {
		total += utf16.RuneLen(r)
	}

	return total
}
