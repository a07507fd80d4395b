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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	require.True(t, l.Allow("a"), "first request should be allowed")
	require.True(t, l.Allow("a"), "second request should be allowed")
	assert.False(t, l.Allow("a"), "third request should be rejected")
}

func TestRateLimiter_SeparateIdentifiers(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	require.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "b's first request should be allowed independent of a")
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	l := NewRateLimiter(0, time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("a"), "request %d should be allowed with limit disabled", i)
	}
}

func TestRateLimiter_Middleware_RejectsOverLimit(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/processes", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
