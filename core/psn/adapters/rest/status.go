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

	"psnapi/modules/api/serde"
)

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status reports liveness. It never touches the upstream network, so it
// answers even when the gateway is down.
func (a *API) Status(w http.ResponseWriter, _ *http.Request) {
	serde.WriteJSON(w, http.StatusOK, statusResponse{Status: "online", Version: Version})
}
