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

// Package rag describes the optional RAG/search collaborator of
// spec.md §6: vector search, text search, regex search, result
// expansion, and typed-entity lookup, plus the composable Filter
// predicate used to narrow any of them. The core never owns an index
// -- it only consumes these interfaces (§1 Non-goals) -- so this
// package holds capability interfaces and filter plumbing; concrete
// backends live in rag/chromem and rag/qdrant.
//
// Modeled on pkg/databases.DatabaseProvider /
// pkg/vector.Provider shape (Search/Upsert over a named collection)
// and pkg/context/search.go's SearchEngine, generalized to the
// capability-interface style spec.md §9 calls for: "implementations
// advertise via supportsType(name) and the tool facade constructs
// only the subset of user-facing tools it can back."
package rag

import "context"

// SimilarityResult is one hit from any search capability.
type SimilarityResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// VectorSearcher performs nearest-neighbour search over pre-computed
// embeddings. The embedding step itself is an external collaborator
// (spec.md §1); this interface only consumes the resulting vector.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, query []float32, topK int, threshold float32, filter Filter) ([]SimilarityResult, error)
}

// TextSearcher performs a Lucene-syntax full-text query.
type TextSearcher interface {
	SearchText(ctx context.Context, collection string, query string, topK int) ([]SimilarityResult, error)
}

// RegexSearcher performs a regular-expression scan over indexed content.
type RegexSearcher interface {
	SearchRegex(ctx context.Context, collection string, pattern string, topK int) ([]SimilarityResult, error)
}

// ExpandMode selects how ResultExpander grows a hit.
type ExpandMode string

const (
	// ExpandNeighbors returns chunks adjacent to the hit in document order.
	ExpandNeighbors ExpandMode = "neighbors"
	// ExpandSection returns the enclosing section the hit belongs to.
	ExpandSection ExpandMode = "section"
)

// ResultExpander grows a single hit into its surrounding context.
type ResultExpander interface {
	Expand(ctx context.Context, collection string, id string, mode ExpandMode) ([]SimilarityResult, error)
}

// EntityFinder looks up a single typed entity by id, independent of
// similarity scoring -- the "typed-entity lookup by id+type" of §6.
type EntityFinder interface {
	FindByID(ctx context.Context, typeName string, id string) (SimilarityResult, bool, error)
}

// Capability reports, per backend, which of the optional interfaces
// above it backs, so a tool facade can build only what it can serve
// (§9 "polymorphism over capability").
type Capability interface {
	SupportsType(name string) bool
}

const (
	CapabilityVector = "vector"
	CapabilityText   = "text"
	CapabilityRegex  = "regex"
	CapabilityExpand = "expand"
	CapabilityEntity = "entity"
)
