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
	"errors"
	"fmt"
	"net/http"

	"psnapi/core/psn/domain"
	"psnapi/modules/api/serde"
	"psnapi/modules/middleware/problem"
)

// MaxBatchSize caps one batch request. The OpenAPI document enforces the
// same bound; this check stands on its own for callers that bypass it.
const MaxBatchSize = 100

type (
	batchRequest struct {
		Users []batchUser `json:"users"`
	}

	batchUser struct {
		OnlineID string   `json:"online_id"`
		Fields   []string `json:"fields,omitempty"`
	}
)

// BatchUsers resolves several online IDs in one request, each with its own
// optional field projection. IDs are looked up sequentially; a failed lookup
// contributes an error placeholder instead of failing the batch, so the
// response always carries one element per input ID in input order with
// status 200.
func (a *API) BatchUsers(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := serde.ParseJsonBody(r.Body, &req); err != nil {
		writeProblem(w, r, problem.BadRequest("malformed request body"))
		return
	}
	if len(req.Users) == 0 {
		writeProblem(w, r, problem.BadRequest("no users given",
			problem.WithInvalidParam("users", "must not be empty")))
		return
	}
	if len(req.Users) > MaxBatchSize {
		writeProblem(w, r, problem.BadRequest(fmt.Sprintf("at most %d users per batch", MaxBatchSize),
			problem.WithInvalidParam("users", "too many items")))
		return
	}

	results := make([]map[string]any, 0, len(req.Users))
	for _, u := range req.Users {
		profile, _, err := a.app.FullProfile(r.Context(), u.OnlineID)
		if err != nil {
			results = append(results, batchPlaceholder(u.OnlineID, err))
			continue
		}
		if len(u.Fields) > 0 {
			profile = domain.FilterFields(profile, u.Fields)
		}
		results = append(results, profile)
	}
	serde.WriteJSON(w, http.StatusOK, results)
}

// batchPlaceholder keeps failed entries positionally stable in the batch
// response. Upstream error text stays out of the payload.
func batchPlaceholder(onlineID string, err error) map[string]any {
	msg := "lookup failed"
	if errors.Is(err, domain.ErrUserNotFound) {
		msg = "user not found"
	}
	return map[string]any{
		"online_id": onlineID,
		"error":     msg,
	}
}
