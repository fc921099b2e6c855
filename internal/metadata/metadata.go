// Package metadata looks up the stored owner and title of a document so the
// backend API can name its rendered artifact.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// ErrEmptyID is returned for lookups without an id.
var ErrEmptyID = errors.New("document id is required")

// Document is the subset of a stored document needed to render it.
type Document struct {
	ID        string `firestore:"-"`
	OwnerName string `firestore:"ownerName"`
	Title     string `firestore:"title"`
}

// Store reads document metadata.
type Store interface {
	Get(ctx context.Context, id string) (Document, error)
}

// Compile-time interface checks
var (
	_ Store = (*FirestoreStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// FirestoreStore reads documents from a Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient creates a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreStore reads from collection using client.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

// Get fetches the document with id.
func (s *FirestoreStore) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, ErrEmptyID
	}
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Document{}, fmt.Errorf("reading document %s: %w", id, err)
	}

	var doc Document
	if err := snap.DataTo(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding document %s: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore returns a store seeded with docs, keyed by id.
func NewMemoryStore(docs map[string]Document) *MemoryStore {
	m := maps.Clone(docs)
	if m == nil {
		m = make(map[string]Document)
	}
	return &MemoryStore{docs: m}
}

// Put stores doc under doc.ID, replacing any previous entry.
func (s *MemoryStore) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if id == "" {
		return Document{}, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc.ID = id
	return doc, nil
}
