// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chromem adapts github.com/philippgille/chromem-go into the
// rag.VectorSearcher capability, the embedded zero-config vector
// backend of SPEC_FULL.md §3. Modeled on
// pkg/vector.ChromemProvider: an identity embedding function (vectors
// always arrive pre-computed, per spec.md §1's "embedding layer is an
// external collaborator"), one *chromem.Collection per named
// collection, and optional gzip file persistence.
package chromem

import (
	"context"
	"fmt"
	"os"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/flowstate-ai/agentcore/rag"
)

// Config configures the embedded store.
type Config struct {
	// PersistPath, if set, persists the database to disk as gob
	// (optionally gzip-compressed) after every mutation.
	PersistPath string
	Compress    bool
}

// Store implements rag.VectorSearcher over an in-process chromem-go
// database. It also exposes Upsert so callers can populate it without
// a separate ingestion pipeline -- ingestion itself is out of scope
// (spec.md §1 Non-goals: "does not own the vector/text index").
type Store struct {
	db       *chromemgo.DB
	cfg      Config
	mu       sync.RWMutex
	colls    map[string]*chromemgo.Collection
	identity chromemgo.EmbeddingFunc
}

// New opens (or creates) the embedded store.
func New(cfg Config) (*Store, error) {
	var db *chromemgo.DB
	if cfg.PersistPath != "" {
		if _, err := os.Stat(dbPath(cfg)); err == nil {
			loaded, err := chromemgo.NewPersistentDB(dbPath(cfg), cfg.Compress)
			if err != nil {
				return nil, fmt.Errorf("chromem: load %s: %w", dbPath(cfg), err)
			}
			db = loaded
		} else {
			db = chromemgo.NewDB()
		}
	} else {
		db = chromemgo.NewDB()
	}

	return &Store{
		db:    db,
		cfg:   cfg,
		colls: make(map[string]*chromemgo.Collection),
		identity: func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("chromem: query vectors must be pre-computed")
		},
	}, nil
}

func dbPath(cfg Config) string {
	p := cfg.PersistPath + "/vectors.gob"
	if cfg.Compress {
		p += ".gz"
	}
	return p
}

func (s *Store) collection(name string) (*chromemgo.Collection, error) {
	s.mu.RLock()
	if c, ok := s.colls[name]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.colls[name]; ok {
		return c, nil
	}
	c, err := s.db.GetOrCreateCollection(name, nil, s.identity)
	if err != nil {
		return nil, fmt.Errorf("chromem: collection %s: %w", name, err)
	}
	s.colls[name] = c
	return c, nil
}

// Upsert adds or replaces a vector + metadata entry.
func (s *Store) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any, content string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	strMeta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMeta[k] = fmt.Sprint(v)
	}
	doc := chromemgo.Document{ID: id, Content: content, Metadata: strMeta, Embedding: vector}
	if err := c.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return fmt.Errorf("chromem: upsert %s: %w", id, err)
	}
	return s.persist()
}

// Search implements rag.VectorSearcher.
func (s *Store) Search(ctx context.Context, collection string, query []float32, topK int, threshold float32, filter rag.Filter) ([]rag.SimilarityResult, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	n := rag.FetchSize(topK, filter)
	if n > c.Count() {
		n = c.Count()
	}
	if n == 0 {
		return nil, nil
	}
	hits, err := c.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: search: %w", err)
	}
	out := make([]rag.SimilarityResult, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		meta := make(map[string]any, len(h.Metadata))
		for k, v := range h.Metadata {
			meta[k] = v
		}
		out = append(out, rag.SimilarityResult{ID: h.ID, Score: h.Similarity, Content: h.Content, Metadata: meta})
	}
	return rag.PostFilter(out, filter, topK), nil
}

func (s *Store) persist() error {
	if s.cfg.PersistPath == "" {
		return nil
	}
	if err := os.MkdirAll(s.cfg.PersistPath, 0o755); err != nil {
		return fmt.Errorf("chromem: persist dir: %w", err)
	}
	//nolint:staticcheck // Export is the documented persistence path for chromem-go.
	if err := s.db.Export(dbPath(s.cfg), s.cfg.Compress, ""); err != nil {
		return fmt.Errorf("chromem: persist: %w", err)
	}
	return nil
}

// SupportsType implements rag.Capability.
func (s *Store) SupportsType(name string) bool { return name == rag.CapabilityVector }

var _ rag.VectorSearcher = (*Store)(nil)
var _ rag.Capability = (*Store)(nil)
