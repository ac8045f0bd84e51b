package server

import (
	"strings"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/lexcodex/lplsense/framework/lpl"
)

// Document tracks a file open in the editor.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Text       string
}

// Lines splits the text the way the parser does.
func (d *Document) Lines() []string {
	return lpl.SplitLines(d.Text)
}

type documentStore struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[protocol.DocumentURI]*Document)}
}

func (s *documentStore) open(item protocol.TextDocumentItem) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &Document{
		URI:        item.URI,
		LanguageID: string(item.LanguageID),
		Version:    item.Version,
		Text:       item.Text,
	}
	s.docs[item.URI] = doc
	return doc
}

// change applies content changes in order. A change without a range
// replaces the whole text.
func (s *documentStore) change(id protocol.VersionedTextDocumentIdentifier, changes []protocol.TextDocumentContentChangeEvent) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id.URI]
	if !ok {
		doc = &Document{URI: id.URI}
		s.docs[id.URI] = doc
	}
	for _, change := range changes {
		if change.Range == (protocol.Range{}) && change.RangeLength == 0 {
			doc.Text = change.Text
			continue
		}
		doc.Text = applyEdit(doc.Text, change.Range, change.Text)
	}
	doc.Version = id.Version
	return &Document{URI: doc.URI, LanguageID: doc.LanguageID, Version: doc.Version, Text: doc.Text}
}

func (s *documentStore) close(u protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, u)
}

func (s *documentStore) get(u protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[u]
	if !ok {
		return nil, false
	}
	cp := *doc
	return &cp, true
}

func (s *documentStore) isOpen(u protocol.DocumentURI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[u]
	return ok
}

func (s *documentStore) uris() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.DocumentURI, 0, len(s.docs))
	for u := range s.docs {
		out = append(out, u)
	}
	return out
}

// applyEdit replaces rng in text. Characters are byte offsets within a
// line; positions past the end clamp.
func applyEdit(text string, rng protocol.Range, newText string) string {
	start := offsetOf(text, rng.Start)
	end := offsetOf(text, rng.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + newText + text[end:]
}

func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text) - offset
	}
	if int(pos.Character) < lineEnd {
		return offset + int(pos.Character)
	}
	return offset + lineEnd
}
