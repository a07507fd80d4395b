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

package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter caps how many process-creation requests one remote
// identifier may make per window, a single-scope, single-limit-type
// reduction of pkg/ratelimit's fixed-window MemoryStore: this surface
// has one limited route, not the general multi-dimension budget the
// source package tracks per session/user/tenant.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	seen map[string]*window
}

type window struct {
	count int
	ends  time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window
// for each identifier. A non-positive limit disables enforcement.
func NewRateLimiter(limit int, windowDur time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: windowDur, seen: make(map[string]*window)}
}

// Allow records one request for identifier and reports whether it
// falls within the current window's limit.
func (l *RateLimiter) Allow(identifier string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.seen[identifier]
	if !ok || now.After(w.ends) {
		w = &window{count: 0, ends: now.Add(l.window)}
		l.seen[identifier] = w
	}
	w.count++
	return w.count <= l.limit
}

// Middleware enforces l against each request's remote address,
// responding 429 with a Retry-After header once the window's limit is
// spent.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, errTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errTooManyRequests = rateLimitError("server: rate limit exceeded")

type rateLimitError string

func (e rateLimitError) Error() string { return string(e) }
