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

import (
	"regexp"
	"strings"
)

// Filter composes over a result's metadata, the "sum of predicates"
// of spec.md §6: Eq, Ne, Gt/Gte/Lt/Lte, In/Nin,
// Contains/ContainsIgnoreCase, StartsWith/EndsWith, Like,
// EqIgnoreCase, And/Or/Not. A backend may translate a Filter to its
// own native query language (neither rag/qdrant nor rag/chromem does: both apply PostFilter to their results); any backend
// may instead fall back to Matches for in-memory post-filtering, which
// every Filter always supports.
type Filter interface {
	Matches(metadata map[string]any) bool
}

type eqFilter struct {
	key string
	val any
}

// Eq matches metadata[key] == val.
func Eq(key string, val any) Filter { return eqFilter{key, val} }

func (f eqFilter) Matches(m map[string]any) bool {
	v, ok := m[f.key]
	return ok && equalAny(v, f.val)
}

type neFilter struct{ eqFilter }

// Ne matches metadata[key] != val.
func Ne(key string, val any) Filter { return neFilter{eqFilter{key, val}} }

func (f neFilter) Matches(m map[string]any) bool { return !f.eqFilter.Matches(m) }

type cmpFilter struct {
	key string
	val float64
	op  string // "gt", "gte", "lt", "lte"
}

func Gt(key string, val float64) Filter  { return cmpFilter{key, val, "gt"} }
func Gte(key string, val float64) Filter { return cmpFilter{key, val, "gte"} }
func Lt(key string, val float64) Filter  { return cmpFilter{key, val, "lt"} }
func Lte(key string, val float64) Filter { return cmpFilter{key, val, "lte"} }

func (f cmpFilter) Matches(m map[string]any) bool {
	n, ok := toFloat(m[f.key])
	if !ok {
		return false
	}
	switch f.op {
	case "gt":
		return n > f.val
	case "gte":
		return n >= f.val
	case "lt":
		return n < f.val
	case "lte":
		return n <= f.val
	default:
		return false
	}
}

type inFilter struct {
	key    string
	values []any
	negate bool
}

// In matches metadata[key] being one of values.
func In(key string, values ...any) Filter { return inFilter{key: key, values: values} }

// Nin matches metadata[key] not being any of values.
func Nin(key string, values ...any) Filter { return inFilter{key: key, values: values, negate: true} }

func (f inFilter) Matches(m map[string]any) bool {
	v, ok := m[f.key]
	found := false
	if ok {
		for _, want := range f.values {
			if equalAny(v, want) {
				found = true
				break
			}
		}
	}
	if f.negate {
		return !found
	}
	return found
}

type strFilter struct {
	key      string
	sub      string
	op       string // "contains", "startswith", "endswith", "like", "eqci"; ContainsIgnoreCase is "contains" with ignoreCs
	ignoreCs bool
}

func Contains(key, sub string) Filter           { return strFilter{key: key, sub: sub, op: "contains"} }
func ContainsIgnoreCase(key, sub string) Filter { return strFilter{key: key, sub: sub, op: "contains", ignoreCs: true} }
func StartsWith(key, sub string) Filter         { return strFilter{key: key, sub: sub, op: "startswith"} }
func EndsWith(key, sub string) Filter           { return strFilter{key: key, sub: sub, op: "endswith"} }
func EqIgnoreCase(key, val string) Filter       { return strFilter{key: key, sub: val, op: "eqci"} }

// Like matches a SQL-style pattern ('%' any run, '_' single char).
func Like(key, pattern string) Filter { return strFilter{key: key, sub: pattern, op: "like"} }

func (f strFilter) Matches(m map[string]any) bool {
	v, ok := m[f.key].(string)
	if !ok {
		return false
	}
	s, sub := v, f.sub
	if f.ignoreCs || f.op == "eqci" {
		s, sub = strings.ToLower(s), strings.ToLower(sub)
	}
	switch f.op {
	case "contains":
		return strings.Contains(s, sub)
	case "startswith":
		return strings.HasPrefix(s, sub)
	case "endswith":
		return strings.HasSuffix(s, sub)
	case "eqci":
		return s == sub
	case "like":
		return likeMatch(s, sub)
	default:
		return false
	}
}

type boolFilter struct {
	op   string // "and", "or", "not"
	subs []Filter
}

// And matches when every sub-filter matches.
func And(subs ...Filter) Filter { return boolFilter{op: "and", subs: subs} }

// Or matches when any sub-filter matches.
func Or(subs ...Filter) Filter { return boolFilter{op: "or", subs: subs} }

// Not inverts a single sub-filter.
func Not(sub Filter) Filter { return boolFilter{op: "not", subs: []Filter{sub}} }

func (f boolFilter) Matches(m map[string]any) bool {
	switch f.op {
	case "and":
		for _, s := range f.subs {
			if !s.Matches(m) {
				return false
			}
		}
		return true
	case "or":
		for _, s := range f.subs {
			if s.Matches(m) {
				return true
			}
		}
		return false
	case "not":
		return !f.subs[0].Matches(m)
	default:
		return false
	}
}

func equalAny(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok2 := toFloat(b); ok2 {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// likeMatch implements the usual SQL LIKE wildcards ('%' = any run,
// '_' = single char) by translating the pattern to an anchored regexp.
func likeMatch(s, pattern string) bool {
	re, err := regexp.Compile("^" + likeToRegexp(pattern) + "$")
	if err != nil {
		return s == pattern
	}
	return re.MatchString(s)
}

func likeToRegexp(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
