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

package rest

import (
	"log/slog"
	"net/http"

	"psnapi/core/psn/domain"
	"psnapi/modules/api/serde"
	"psnapi/modules/middleware/problem"
)

// SearchUsers looks up an exact online ID given via ?query=, optionally
// projected down to ?fields=. Lookups are best effort: a miss or an upstream
// failure yields an empty list with 200, never an error status. A hit yields
// a single-element list.
func (a *API) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeProblem(w, r, problem.BadRequest("missing search query",
			problem.WithInvalidParam("query", "must not be empty")))
		return
	}

	results := make([]map[string]any, 0, 1)
	profile, degraded, err := a.app.FullProfile(r.Context(), query)
	if err != nil {
		slog.WarnContext(r.Context(), "user search miss",
			slog.String("query", query),
			slog.Any("error", err),
		)
	} else {
		if fields := parseFields(r); len(fields) > 0 {
			profile = domain.FilterFields(profile, fields)
		}
		results = append(results, profile)
		writeDegraded(w, degraded)
	}
	serde.WriteJSON(w, http.StatusOK, results)
}
