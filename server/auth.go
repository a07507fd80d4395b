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
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator checks bearer tokens against an external provider's
// JWKS endpoint, trimmed from pkg/auth.JWTValidator to the HTTP-only
// path: no gRPC interceptors, no role/tenant claim extraction, since
// this surface has no equivalent RBAC model to enforce.
type TokenValidator struct {
	jwksURL  string
	cache    *jwk.Cache
	issuer   string
	audience string
}

// NewTokenValidator registers jwksURL with an auto-refreshing JWKS
// cache and fetches it once to fail fast on misconfiguration.
func NewTokenValidator(ctx context.Context, jwksURL, issuer, audience string) (*TokenValidator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("server: register jwks %s: %w", jwksURL, err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("server: fetch jwks %s: %w", jwksURL, err)
	}
	return &TokenValidator{jwksURL: jwksURL, cache: cache, issuer: issuer, audience: audience}, nil
}

// Middleware rejects requests lacking a valid "Bearer <token>"
// Authorization header signed by a key in the validator's JWKS.
func (v *TokenValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("server: missing bearer token"))
			return
		}

		keyset, err := v.cache.Get(r.Context(), v.jwksURL)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Errorf("server: jwks unavailable: %w", err))
			return
		}
		if _, err := jwt.Parse([]byte(token),
			jwt.WithKeySet(keyset),
			jwt.WithValidate(true),
			jwt.WithIssuer(v.issuer),
			jwt.WithAudience(v.audience),
		); err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("server: invalid token: %w", err))
			return
		}
		next.ServeHTTP(w, r)
	})
}
