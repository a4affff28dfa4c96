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
	"psnapi/modules/middleware"
	"psnapi/modules/middleware/problem"
)

// writeProblem stamps the request correlation ID on the problem before
// writing it.
func writeProblem(w http.ResponseWriter, r *http.Request, p *problem.Problem) {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		problem.WithTraceID(id)(p)
	}
	problem.Write(w, p)
}

// ProblemFromDomainError translates domain errors into RFC7807 problems.
// Missing users read as 404, gateway trouble as 502, anything else as 500.
// Upstream error text never reaches the client.
func ProblemFromDomainError(onlineID string, err error) *problem.Problem {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return problem.NotFound(fmt.Sprintf("user not found: %s", onlineID))
	case errors.Is(err, domain.ErrUpstream):
		return problem.New(
			problem.WithTitle("Bad Gateway"),
			problem.WithStatus(http.StatusBadGateway),
			problem.WithDetail("upstream network error"),
		)
	case errors.Is(err, domain.ErrInvalidData):
		return problem.BadRequest("invalid request")
	default:
		return problem.Internal("server error")
	}
}
