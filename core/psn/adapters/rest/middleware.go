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
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"psnapi/modules/middleware"
	"psnapi/modules/middleware/problem"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// RecoverHTTPMiddleware recovers from panics at the outermost net/http layer.
func RecoverHTTPMiddleware() func(http.Handler) http.Handler {
	return middleware.Recovery(func(w http.ResponseWriter, _ *http.Request, _ any) {
		problem.Write(w, problem.Internal("server error"))
	})
}

// ValidationMiddleware validates requests against the embedded OpenAPI
// document before any handler runs. A spec that fails to load turns every
// request into a 500 rather than silently skipping validation.
func ValidationMiddleware(specFS fs.FS, specPath string) func(http.Handler) http.Handler {
	spec, err := loadSpec(specFS, specPath)
	if err != nil {
		slog.Error("load OpenAPI spec", slog.Any("error", err))
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				problem.Write(w, problem.Internal("server error"))
			})
		}
	}

	opts := &nethttpmiddleware.Options{
		Options:               openapi3filter.Options{MultiError: true},
		DoNotValidateServers:  true,
		SilenceServersWarning: true,
		ErrorHandlerWithOpts: func(_ context.Context, err error, w http.ResponseWriter, _ *http.Request, eopts nethttpmiddleware.ErrorHandlerOpts) {
			status := eopts.StatusCode
			if status == 0 {
				status = http.StatusBadRequest
			}
			// Body schema violations should be 422
			if hint := inferBodyValidationStatus(err); hint == http.StatusUnprocessableEntity {
				status = http.StatusUnprocessableEntity
			}

			p := problem.New(
				problem.WithTitle(http.StatusText(status)),
				problem.WithStatus(status),
				problem.WithDetail("validation failed"),
			)

			// Expand errors into invalidParams with pointers where possible
			switch v := err.(type) {
			case openapi3.MultiError:
				for _, item := range v {
					addValidationDetail(p, item)
				}
			default:
				addValidationDetail(p, v)
			}

			problem.Write(w, p)
		},
	}

	return nethttpmiddleware.OapiRequestValidatorWithOptions(spec, opts)
}

func loadSpec(specFS fs.FS, specPath string) (*openapi3.T, error) {
	data, err := fs.ReadFile(specFS, specPath)
	if err != nil {
		return nil, err
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, err
	}
	return doc, nil
}

func addValidationDetail(p *problem.Problem, err error) {
	// Handle RequestError to extract param or body pointer
	if re, ok := err.(*openapi3filter.RequestError); ok {
		// SchemaError provides pointer and reason
		if se, ok := re.Err.(*openapi3.SchemaError); ok {
			if re.Parameter != nil {
				problem.WithInvalidParam(re.Parameter.Name, se.Reason)(p)
				return
			}
			problem.WithInvalidParam(pointerField(se), se.Reason)(p)
			return
		}
		// Fallback when not a SchemaError: do not echo input; keep messages generic
		if re.Parameter != nil {
			problem.WithInvalidParam(re.Parameter.Name, safeReason(re.Reason))(p)
		} else {
			problem.WithInvalidParam("body", safeReason(re.Reason))(p)
		}
		return
	}
	// Direct SchemaError (commonly within MultiError)
	if se, ok := err.(*openapi3.SchemaError); ok {
		problem.WithInvalidParam(pointerField(se), se.Reason)(p)
		return
	}
	// Security error
	if _, ok := err.(*openapi3filter.SecurityRequirementsError); ok {
		problem.WithInvalidParam("authorization", "missing or invalid credentials")(p)
		return
	}
	// Generic fallback
	problem.WithInvalidParam("request", "invalid value")(p)
}

// pointerField reduces a JSON pointer to its first segment as the field name.
func pointerField(se *openapi3.SchemaError) string {
	field := strings.Join(se.JSONPointer(), "/")
	if idx := strings.Index(field, "/"); idx >= 0 {
		field = field[:idx]
	}
	if field == "" || field == "0" {
		return "body"
	}
	return field
}

// inferBodyValidationStatus returns 422 for body/schema violations to avoid 400 on well-formed but semantically invalid payloads.
func inferBodyValidationStatus(err error) int {
	switch v := err.(type) {
	case *openapi3filter.RequestError:
		if v.RequestBody != nil {
			return http.StatusUnprocessableEntity
		}
		if _, ok := v.Err.(*openapi3.SchemaError); ok {
			return http.StatusUnprocessableEntity
		}
	case openapi3.MultiError:
		for _, item := range v {
			if inferBodyValidationStatus(item) == http.StatusUnprocessableEntity {
				return http.StatusUnprocessableEntity
			}
		}
	case *openapi3.SchemaError:
		return http.StatusUnprocessableEntity
	}
	return 0
}

// safeReason reduces verbose reasons to avoid reflecting input data back to the client.
func safeReason(reason string) string {
	if reason == "" {
		return "invalid value"
	}
	lower := strings.ToLower(reason)
	if strings.Contains(lower, "doesn't match schema") {
		return "doesn't match schema"
	}
	if strings.Contains(lower, "must be one of") {
		return reason
	}
	return "invalid value"
}
