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

package rest

import (
	"net/http"

	"psnapi/core/psn/domain"
)

// Version reported by the status endpoint.
const Version = "1.0"

// API is the REST adapter in the hexagonal architecture, translating HTTP
// requests into domain operations on the user application.
type API struct {
	app *domain.Application
}

func NewAPI(app *domain.Application) *API {
	return &API{app: app}
}

// Register mounts all routes on the mux using method+pattern routing.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", a.Status)
	mux.HandleFunc("GET /api/users", a.SearchUsers)
	mux.HandleFunc("POST /api/users/batch", a.BatchUsers)
	mux.HandleFunc("GET /api/users/{online_id}", a.GetUser)
	mux.HandleFunc("GET /api/users/{online_id}/basic", a.categoryHandler(domain.BasicFields))
	mux.HandleFunc("GET /api/users/{online_id}/presence", a.categoryHandler(domain.PresenceFields))
	mux.HandleFunc("GET /api/users/{online_id}/friends", a.categoryHandler(domain.FriendsFields))
	mux.HandleFunc("GET /api/users/{online_id}/trophies", a.categoryHandler(domain.TrophyFields))
	mux.HandleFunc("GET /api/users/{online_id}/raw-profile", a.RawProfile)
	mux.HandleFunc("GET /api/users/{online_id}/trophy-titles", a.TrophyTitles)
	mux.HandleFunc("GET /api/users/{online_id}/games", a.Games)
}
