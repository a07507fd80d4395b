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

// Package qdrant adapts github.com/qdrant/go-client into the
// rag.VectorSearcher capability, the remote vector backend of
// SPEC_FULL.md §3. Modeled on pkg/vector.QdrantProvider
// / pkg/databases/qdrant.go: gRPC client construction, NewVectorsConfig
// with cosine distance, and WithPayload/WithVectors on search.
package qdrant

import (
	"context"
	"fmt"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/flowstate-ai/agentcore/rag"
)

// Config configures the remote connection.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Store implements rag.VectorSearcher against a Qdrant server.
type Store struct {
	client *qc.Client
}

// New dials the Qdrant gRPC endpoint.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qc.NewClient(&qc.Config{Host: cfg.Host, Port: cfg.Port, APIKey: cfg.APIKey, UseTLS: cfg.UseTLS})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Store{client: client}, nil
}

// EnsureCollection creates the collection if it does not already exist.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dim int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: collection exists %s: %w", collection, err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: collection,
		VectorsConfig:  qc.NewVectorsConfig(&qc.VectorParams{Size: uint64(dim), Distance: qc.Distance_Cosine}),
	})
}

// Upsert adds or replaces a point.
func (s *Store) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	payload := make(map[string]*qc.Value, len(metadata))
	for k, v := range metadata {
		val, err := qc.NewValue(v)
		if err != nil {
			return fmt.Errorf("qdrant: payload value %s: %w", k, err)
		}
		payload[k] = val
	}
	_, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: collection,
		Points: []*qc.PointStruct{{
			Id:      qc.NewID(id),
			Vectors: qc.NewVectors(vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", id, err)
	}
	return nil
}

// Search implements rag.VectorSearcher. The composable rag.Filter is
// applied in-memory (rag.PostFilter) over a native, unfiltered
// over-fetch -- the §6-sanctioned fallback -- rather than translated
// into Qdrant's own filter DSL, which only covers a subset of Filter's
// operators (And/Or/Not nesting in particular).
func (s *Store) Search(ctx context.Context, collection string, query []float32, topK int, threshold float32, filter rag.Filter) ([]rag.SimilarityResult, error) {
	n := uint64(rag.FetchSize(topK, filter))
	points, err := s.client.GetPointsClient().Search(ctx, &qc.SearchPoints{
		CollectionName: collection,
		Vector:         query,
		Limit:          n,
		WithPayload:    qc.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %s: %w", collection, err)
	}
	out := make([]rag.SimilarityResult, 0, len(points.Result))
	for _, p := range points.Result {
		meta := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			meta[k] = payloadScalar(v)
		}
		out = append(out, rag.SimilarityResult{ID: pointIDString(p.Id), Score: p.Score, Metadata: meta})
	}
	return rag.PostFilter(out, filter, topK), nil
}

func payloadScalar(v *qc.Value) any {
	switch k := v.GetKind().(type) {
	case *qc.Value_StringValue:
		return k.StringValue
	case *qc.Value_IntegerValue:
		return k.IntegerValue
	case *qc.Value_DoubleValue:
		return k.DoubleValue
	case *qc.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}

func pointIDString(id *qc.PointId) string {
	if id == nil {
		return ""
	}
	switch o := id.GetPointIdOptions().(type) {
	case *qc.PointId_Uuid:
		return o.Uuid
	case *qc.PointId_Num:
		return fmt.Sprintf("%d", o.Num)
	default:
		return ""
	}
}

// SupportsType implements rag.Capability.
func (s *Store) SupportsType(name string) bool { return name == rag.CapabilityVector }

// Close releases the gRPC connection.
func (s *Store) Close() error { return s.client.Close() }

var _ rag.VectorSearcher = (*Store)(nil)
var _ rag.Capability = (*Store)(nil)
