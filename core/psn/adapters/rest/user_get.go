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
	"net/http"
	"strings"

	"psnapi/core/psn/domain"
	"psnapi/modules/api/serde"
)

// DegradedHeader lists sub-resources that fell back to empty data for this
// response. Absent when everything fetched cleanly.
const DegradedHeader = "X-Degraded-Resources"

// GetUser returns the flattened full profile, optionally projected down to
// the comma-separated ?fields= list. Unknown field names are ignored.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	onlineID := r.PathValue("online_id")

	profile, degraded, err := a.app.FullProfile(r.Context(), onlineID)
	if err != nil {
		writeProblem(w, r, ProblemFromDomainError(onlineID, err))
		return
	}
	if fields := parseFields(r); len(fields) > 0 {
		profile = domain.FilterFields(profile, fields)
	}
	writeDegraded(w, degraded)
	serde.WriteJSON(w, http.StatusOK, profile)
}

// categoryHandler builds a handler that projects the full profile down to a
// fixed category of fields. Fields the profile does not carry are skipped
// rather than reported as errors.
func (a *API) categoryHandler(fields []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		onlineID := r.PathValue("online_id")

		profile, degraded, err := a.app.FullProfile(r.Context(), onlineID)
		if err != nil {
			writeProblem(w, r, ProblemFromDomainError(onlineID, err))
			return
		}
		writeDegraded(w, degraded)
		serde.WriteJSON(w, http.StatusOK, domain.FilterFields(profile, fields))
	}
}

// RawProfile returns the upstream profile document untouched, for clients
// that want fields the flattened view does not carry.
func (a *API) RawProfile(w http.ResponseWriter, r *http.Request) {
	onlineID := r.PathValue("online_id")

	raw, err := a.app.RawProfile(r.Context(), onlineID)
	if err != nil {
		writeProblem(w, r, ProblemFromDomainError(onlineID, err))
		return
	}
	serde.WriteJSON(w, http.StatusOK, raw)
}

func parseFields(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

// writeDegraded must run before the response body is written.
func writeDegraded(w http.ResponseWriter, degraded []string) {
	if len(degraded) > 0 {
		w.Header().Set(DegradedHeader, strings.Join(degraded, ","))
	}
}
