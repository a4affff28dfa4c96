// Copyright 2025 Nguyen Nhat Nguyen
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

package middleware

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid/v5"
)

// RequestIDHeader carries the request correlation ID on both request and
// response.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestIDFromContext returns the correlation ID assigned by RequestID, or
// empty outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID assigns each request a UUIDv7 correlation ID unless the client
// already sent one, echoes it on the response, and stores it on the context
// for handlers and problem responses.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				if uid, err := uuid.NewV7(); err == nil {
					id = uid.String()
				}
			}
			if id != "" {
				w.Header().Set(RequestIDHeader, id)
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
