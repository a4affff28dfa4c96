// Copyright 2025 Nhat-Nguyen Nguyen
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

package services

import (
	"io/fs"
	"net/http"

	"psnapi/core/psn/adapters/rest"
	"psnapi/core/psn/domain"
	"psnapi/modules/server"
)

var _ server.RegistrableService = (*PSNAPIService)(nil)

// PSNAPIService encapsulates the registration logic for the PSN facade API:
// routes plus the OpenAPI validation and recovery middlewares it depends on.
type PSNAPIService struct {
	api      *rest.API
	specFS   fs.FS
	specPath string
}

func NewPSNAPIService(app *domain.Application, specFS fs.FS, specPath string) *PSNAPIService {
	return &PSNAPIService{
		api:      rest.NewAPI(app),
		specFS:   specFS,
		specPath: specPath,
	}
}

// Register mounts the facade routes.
func (s *PSNAPIService) Register(mux *http.ServeMux) {
	s.api.Register(mux)
}

// Middlewares returns global middlewares required by the facade, such as
// request validation. Recovery sits outermost so validation panics are
// covered too.
func (s *PSNAPIService) Middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		rest.RecoverHTTPMiddleware(),
		rest.ValidationMiddleware(s.specFS, s.specPath),
	}
}
