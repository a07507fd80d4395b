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

package rag

// InflationFactor is how far a backend over-fetches before applying
// an in-memory Filter, so that post-filtering rarely starves topK.
// Modeled on pkg/context/search.go over-fetch-then-trim
// pattern for metadata filters its native query language can't express.
const InflationFactor = 4

// PostFilter applies filter in-memory to results already ranked by a
// backend, trimming to topK. It is the §6 fallback "implementations
// may ... fall back to in-memory post-filtering with top-k inflation"
// for any backend whose native query language can't express filter.
func PostFilter(results []SimilarityResult, filter Filter, topK int) []SimilarityResult {
	if filter == nil {
		if len(results) > topK {
			return results[:topK]
		}
		return results
	}
	out := make([]SimilarityResult, 0, topK)
	for _, r := range results {
		if filter.Matches(r.Metadata) {
			out = append(out, r)
			if len(out) >= topK {
				break
			}
		}
	}
	return out
}

// FetchSize returns how many results a backend should request from
// its native ranker before PostFilter trims it back to topK.
func FetchSize(topK int, filter Filter) int {
	if filter == nil {
		return topK
	}
	return topK * InflationFactor
}
