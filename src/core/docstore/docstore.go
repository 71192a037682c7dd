// Package docstore holds the reference documents answers are judged
// against. The store is read-only during an evaluation pass; evaluators
// work from snapshots, never from live store state.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrDocumentNotFound = errors.New("document not found")

type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentStore is the reference document source the evaluation layer reads
// from.
type DocumentStore interface {
	Add(ctx context.Context, title, content string) (*Document, error)
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context) ([]Document, error)
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[int64]Document
	snowflake *snowflake.Node
}

func NewMemoryStore() (*MemoryStore, error) {
	node, err := snowflake.NewNode(4) // Node number 4 for documents
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &MemoryStore{
		documents: make(map[int64]Document),
		snowflake: node,
	}, nil
}

func (s *MemoryStore) Add(ctx context.Context, title, content string) (*Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("document content is empty")
	}

	doc := Document{
		ID:        s.snowflake.Generate().Int64(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.documents[doc.ID] = doc
	s.mu.Unlock()

	return &doc, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
	}
	return &doc, nil
}

// List returns a snapshot of every document, ordered by ID. Mutating the
// returned slice does not touch the store.
func (s *MemoryStore) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}
