// Copyright 2025 The Go A2A Authors.
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
//
// SPDX-License-Identifier: Apache-2.0

// Package auth attaches credentials to outgoing requests.
// A credential is applied to every request unchanged; this package performs
// no token exchange or refresh.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// Credential authenticates a request.
type Credential interface {
	// Apply sets the authentication headers of req.
	Apply(req *http.Request) error

	// IsAuthenticated reports whether Apply attaches anything.
	IsAuthenticated() bool
}

// Anonymous attaches nothing. It is used in mock mode.
//
// Anonymous is safe to use as a zero value and is immutable.
type Anonymous struct{}

// Apply implements [Credential].
func (Anonymous) Apply(*http.Request) error { return nil }

// IsAuthenticated always returns false.
func (Anonymous) IsAuthenticated() bool { return false }

// APIKey sends the developer API key in the x-api-key header.
// Event-stream requests additionally carry it as a bearer token.
type APIKey string

// Apply implements [Credential].
func (k APIKey) Apply(req *http.Request) error {
	if k == "" {
		return taskforceai.InvalidConfig("api_key", "API key is empty")
	}
	req.Header.Set(taskforceai.HeaderAPIKey, string(k))
	if strings.Contains(req.Header.Get("Accept"), "text/event-stream") {
		req.Header.Set("Authorization", "Bearer "+string(k))
	}
	return nil
}

// IsAuthenticated implements [Credential].
func (k APIKey) IsAuthenticated() bool { return k != "" }

// DefaultLeeway is subtracted from a token's expiry before it is considered expired.
const DefaultLeeway = 30 * time.Second

// BearerToken sends a token in the Authorization header.
//
// When the token is a JWT its exp claim is read, without verifying the
// signature, so that an expired token fails locally instead of costing a round trip.
type BearerToken struct {
	token   string
	expires time.Time
	leeway  time.Duration
	now     func() time.Time
}

// NewBearerToken returns a BearerToken for token.
// A token shaped like a JWT that cannot be parsed is rejected.
func NewBearerToken(token string) (*BearerToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, taskforceai.InvalidConfig("bearer_token", "token is empty")
	}
	b := &BearerToken{
		token:  token,
		leeway: DefaultLeeway,
		now:    time.Now,
	}
	if strings.Count(token, ".") == 2 {
		tok, err := jwt.ParseInsecure([]byte(token))
		if err != nil {
			return nil, &taskforceai.Error{
				Kind:    taskforceai.KindInvalidConfig,
				Field:   "bearer_token",
				Message: "malformed JWT",
				Err:     err,
			}
		}
		if exp, ok := tok.Expiration(); ok {
			b.expires = exp
		}
	}
	return b, nil
}

// Expires returns the token expiry, or the zero time for opaque tokens and JWTs without exp.
func (b *BearerToken) Expires() time.Time {
	return b.expires
}

// Apply implements [Credential].
func (b *BearerToken) Apply(req *http.Request) error {
	if !b.expires.IsZero() && !b.now().Add(b.leeway).Before(b.expires) {
		return taskforceai.InvalidConfig("bearer_token", "token expired at "+b.expires.UTC().Format(time.RFC3339))
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	return nil
}

// IsAuthenticated implements [Credential].
func (b *BearerToken) IsAuthenticated() bool { return true }
