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
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"psnapi/core/psn/domain"
	"psnapi/modules/api/serde"
	"psnapi/modules/middleware/problem"
)

// DefaultTitleLimit bounds title listings when the client does not ask for a
// specific page size.
const DefaultTitleLimit = 100

// trophyTitleRecord is the upstream shape of one per-title trophy entry.
type trophyTitleRecord struct {
	NpCommunicationID   string                `json:"npCommunicationId"`
	TrophyTitleName     string                `json:"trophyTitleName"`
	TrophyTitlePlatform string                `json:"trophyTitlePlatform"`
	Progress            int                   `json:"progress"`
	DefinedTrophies     domain.EarnedTrophies `json:"definedTrophies"`
	EarnedTrophies      domain.EarnedTrophies `json:"earnedTrophies"`
}

type (
	trophyTitleResponse struct {
		TitleID        string `json:"title_id"`
		TitleName      string `json:"title_name"`
		Platform       string `json:"platform"`
		Progress       int    `json:"progress"`
		TrophiesEarned int    `json:"trophies_earned"`
		TrophiesTotal  int    `json:"trophies_total"`
	}

	trophyTitlesResponse struct {
		OnlineID    string                `json:"online_id"`
		TotalTitles int                   `json:"total_titles"`
		Titles      []trophyTitleResponse `json:"titles"`
	}
)

// TrophyTitles lists per-title trophy progress for a user. Records the
// upstream sends in a shape we do not recognize are skipped, not fatal.
func (a *API) TrophyTitles(w http.ResponseWriter, r *http.Request) {
	onlineID := r.PathValue("online_id")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	raw, err := a.app.TrophyTitles(r.Context(), onlineID, limit)
	if err != nil {
		writeProblem(w, r, ProblemFromDomainError(onlineID, err))
		return
	}

	titles := make([]trophyTitleResponse, 0, len(raw))
	for _, rec := range raw {
		var t trophyTitleRecord
		if err := json.Unmarshal(rec, &t); err != nil {
			slog.WarnContext(r.Context(), "skipping undecodable trophy title record", slog.Any("error", err))
			continue
		}
		titles = append(titles, trophyTitleResponse{
			TitleID:        t.NpCommunicationID,
			TitleName:      t.TrophyTitleName,
			Platform:       t.TrophyTitlePlatform,
			Progress:       t.Progress,
			TrophiesEarned: trophyCount(t.EarnedTrophies),
			TrophiesTotal:  trophyCount(t.DefinedTrophies),
		})
	}
	serde.WriteJSON(w, http.StatusOK, trophyTitlesResponse{
		OnlineID:    onlineID,
		TotalTitles: len(titles),
		Titles:      titles,
	})
}

// gameRecord is the upstream shape of one played-title entry.
type gameRecord struct {
	TitleID             string `json:"titleId"`
	Name                string `json:"name"`
	Category            string `json:"category"`
	ImageURL            string `json:"imageUrl"`
	PlayCount           int    `json:"playCount"`
	FirstPlayedDateTime string `json:"firstPlayedDateTime"`
	LastPlayedDateTime  string `json:"lastPlayedDateTime"`
	PlayDuration        string `json:"playDuration"`
}

type (
	gameResponse struct {
		Name         string `json:"name"`
		TitleID      string `json:"title_id"`
		Platform     string `json:"platform"`
		ImageURL     string `json:"image_url,omitempty"`
		PlayCount    int    `json:"play_count"`
		FirstPlayed  string `json:"first_played,omitempty"`
		LastPlayed   string `json:"last_played,omitempty"`
		PlayDuration string `json:"play_duration,omitempty"`
	}

	gamesResponse struct {
		OnlineID   string         `json:"online_id"`
		TotalGames int            `json:"total_games"`
		Games      []gameResponse `json:"games"`
	}
)

// Games lists a user's played titles with play statistics.
func (a *API) Games(w http.ResponseWriter, r *http.Request) {
	onlineID := r.PathValue("online_id")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	raw, err := a.app.TitleStats(r.Context(), onlineID, limit)
	if err != nil {
		writeProblem(w, r, ProblemFromDomainError(onlineID, err))
		return
	}

	games := make([]gameResponse, 0, len(raw))
	for _, rec := range raw {
		var g gameRecord
		if err := json.Unmarshal(rec, &g); err != nil {
			slog.WarnContext(r.Context(), "skipping undecodable game record", slog.Any("error", err))
			continue
		}
		games = append(games, gameResponse{
			Name:         g.Name,
			TitleID:      g.TitleID,
			Platform:     g.Category,
			ImageURL:     g.ImageURL,
			PlayCount:    g.PlayCount,
			FirstPlayed:  g.FirstPlayedDateTime,
			LastPlayed:   g.LastPlayedDateTime,
			PlayDuration: g.PlayDuration,
		})
	}
	serde.WriteJSON(w, http.StatusOK, gamesResponse{
		OnlineID:   onlineID,
		TotalGames: len(games),
		Games:      games,
	})
}

func trophyCount(e domain.EarnedTrophies) int {
	return e.Platinum + e.Gold + e.Silver + e.Bronze
}

// parseLimit reads ?limit= and writes a 400 problem on garbage. The second
// return value reports whether the caller should proceed.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultTitleLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeProblem(w, r, problem.BadRequest("invalid limit",
			problem.WithInvalidParam("limit", "must be a positive integer")))
		return 0, false
	}
	return limit, true
}
