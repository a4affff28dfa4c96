package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"psnapi/core/psn/domain"
	"psnapi/oapi"
)

// fakeClient serves a single known user and fails everything else.
type fakeClient struct {
	presenceErr error
	titles      []json.RawMessage
	stats       []json.RawMessage
}

func (f *fakeClient) ResolveAccountID(_ context.Context, onlineID string) (string, error) {
	if onlineID != "ape" {
		return "", fmt.Errorf("%w: %s", domain.ErrUserNotFound, onlineID)
	}
	return "123456789", nil
}

func (f *fakeClient) Profile(context.Context, string) (map[string]any, error) {
	return map[string]any{
		"aboutMe":   "hello",
		"languages": []any{"en-US"},
		"isPlus":    true,
	}, nil
}

func (f *fakeClient) Presence(context.Context, string) (map[string]any, error) {
	if f.presenceErr != nil {
		return nil, f.presenceErr
	}
	return map[string]any{
		"availability": "availableToPlay",
		"primaryPlatformInfo": map[string]any{
			"onlineStatus": "online",
			"platform":     "PS5",
		},
	}, nil
}

func (f *fakeClient) FriendshipSummary(context.Context, string) (map[string]any, error) {
	return map[string]any{"friendsCount": float64(7), "friendRelation": "friend"}, nil
}

func (f *fakeClient) TrophySummary(context.Context, string) (domain.TrophySummary, error) {
	return domain.TrophySummary{
		Level:    300,
		Progress: 40,
		Tier:     3,
		Earned:   domain.EarnedTrophies{Platinum: 1, Gold: 10, Silver: 20, Bronze: 100},
	}, nil
}

func (f *fakeClient) IsBlocking(context.Context, string) (bool, error) { return false, nil }

func (f *fakeClient) TrophyTitles(context.Context, string, int) ([]json.RawMessage, error) {
	return f.titles, nil
}

func (f *fakeClient) TitleStats(context.Context, string, int) ([]json.RawMessage, error) {
	return f.stats, nil
}

func newTestMux(t *testing.T, client domain.NetworkClient) *http.ServeMux {
	t.Helper()
	app, err := domain.NewApp(client, 10)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	mux := http.NewServeMux()
	NewAPI(app).Register(mux)
	return mux
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestStatus(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "online" || body["version"] != "1.0" {
		t.Errorf("body = %v", body)
	}
}

func TestGetUserFullProfile(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/users/ape", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := decodeBody[map[string]any](t, rec)
	if body[domain.FieldOnlineID] != "ape" {
		t.Errorf("online_id = %v", body[domain.FieldOnlineID])
	}
	if body[domain.FieldTrophyLevel] != float64(300) {
		t.Errorf("trophy_level = %v", body[domain.FieldTrophyLevel])
	}
	if rec.Header().Get(DegradedHeader) != "" {
		t.Errorf("unexpected degraded header %q", rec.Header().Get(DegradedHeader))
	}
}

func TestGetUserFieldProjection(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet,
		"/api/users/ape?fields=online_id,trophy_level,bogus", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if len(body) != 2 {
		t.Errorf("projected body = %v, want exactly online_id and trophy_level", body)
	}
	if _, ok := body["bogus"]; ok {
		t.Error("unknown field must not leak into the response")
	}
}

func TestGetUserNotFound(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/users/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	body := decodeBody[map[string]any](t, rec)
	detail, _ := body["detail"].(string)
	if !strings.Contains(detail, "not found") {
		t.Errorf("detail = %q, want it to mention not found", detail)
	}
}

func TestDegradedHeaderOnPartialProfile(t *testing.T) {
	client := &fakeClient{presenceErr: fmt.Errorf("%w: presence down", domain.ErrUpstream)}
	rec := doRequest(t, newTestMux(t, client), http.MethodGet, "/api/users/ape", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(DegradedHeader); got != "presence" {
		t.Errorf("degraded header = %q, want presence", got)
	}
}

func TestCategoryEndpointsProjectFields(t *testing.T) {
	mux := newTestMux(t, &fakeClient{})

	basic := decodeBody[map[string]any](t, doRequest(t, mux, http.MethodGet, "/api/users/ape/basic", ""))
	if _, ok := basic[domain.FieldTrophyLevel]; ok {
		t.Error("basic view must not carry trophy fields")
	}
	if basic[domain.FieldAboutMe] != "hello" {
		t.Errorf("about_me = %v", basic[domain.FieldAboutMe])
	}

	trophies := decodeBody[map[string]any](t, doRequest(t, mux, http.MethodGet, "/api/users/ape/trophies", ""))
	if trophies[domain.FieldTrophyLevel] != float64(300) {
		t.Errorf("trophy_level = %v", trophies[domain.FieldTrophyLevel])
	}
	if _, ok := trophies[domain.FieldFriendsCount]; ok {
		t.Error("trophy view must not carry friendship fields")
	}
}

func TestSearchMissReturnsEmptyList(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/users?query=nobody", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 0 {
		t.Errorf("results = %v, want empty list", results)
	}
}

func TestSearchHitReturnsSingleProfile(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/users?query=ape", "")
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 1 || results[0][domain.FieldOnlineID] != "ape" {
		t.Errorf("results = %v", results)
	}
}

func TestSearchAppliesFieldProjection(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet,
		"/api/users?query=ape&fields=online_id,is_plus", "")
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 1 {
		t.Fatalf("results = %v", results)
	}
	if len(results[0]) != 2 || results[0][domain.FieldIsPlus] != true {
		t.Errorf("projected result = %v, want exactly online_id and is_plus", results[0])
	}
}

func TestBatchMixedResults(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodPost, "/api/users/batch",
		`{"users":[{"online_id":"nobody"},{"online_id":"ape"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d", len(results))
	}
	// placeholder first: input order is preserved
	if results[0]["online_id"] != "nobody" || results[0]["error"] != "user not found" {
		t.Errorf("placeholder = %v", results[0])
	}
	if results[1][domain.FieldOnlineID] != "ape" {
		t.Errorf("profile = %v", results[1])
	}
	if _, ok := results[1]["error"]; ok {
		t.Error("successful entry must not carry an error key")
	}
}

func TestBatchPerUserFieldProjection(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodPost, "/api/users/batch",
		`{"users":[{"online_id":"ape","fields":["online_id","trophy_level"]},{"online_id":"ape"}]}`)
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d", len(results))
	}
	if len(results[0]) != 2 || results[0][domain.FieldTrophyLevel] != float64(300) {
		t.Errorf("projected entry = %v, want exactly online_id and trophy_level", results[0])
	}
	if len(results[1]) <= 2 {
		t.Errorf("unprojected entry = %v, want the full profile", results[1])
	}
}

func TestBatchRejectsEmptyBody(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodPost, "/api/users/batch",
		`{"users":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTrophyTitlesProjection(t *testing.T) {
	client := &fakeClient{titles: []json.RawMessage{
		json.RawMessage(`{"npCommunicationId":"NPWR001","trophyTitleName":"ASTRO BOT","trophyTitlePlatform":"PS5","progress":80,
			"definedTrophies":{"platinum":1,"gold":5,"silver":10,"bronze":30},
			"earnedTrophies":{"platinum":0,"gold":4,"silver":9,"bronze":25}}`),
		json.RawMessage(`"not an object"`),
	}}
	rec := doRequest(t, newTestMux(t, client), http.MethodGet, "/api/users/ape/trophy-titles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[struct {
		OnlineID    string           `json:"online_id"`
		TotalTitles int              `json:"total_titles"`
		Titles      []map[string]any `json:"titles"`
	}](t, rec)
	if body.OnlineID != "ape" {
		t.Errorf("online_id = %q", body.OnlineID)
	}
	// the undecodable record is skipped
	if body.TotalTitles != 1 || len(body.Titles) != 1 {
		t.Fatalf("total_titles = %d, len(titles) = %d, want 1", body.TotalTitles, len(body.Titles))
	}
	got := body.Titles[0]
	if got["title_id"] != "NPWR001" || got["platform"] != "PS5" {
		t.Errorf("title = %v", got)
	}
	if got["trophies_earned"] != float64(38) || got["trophies_total"] != float64(46) {
		t.Errorf("trophy counts = %v/%v", got["trophies_earned"], got["trophies_total"])
	}
}

func TestGamesProjection(t *testing.T) {
	client := &fakeClient{stats: []json.RawMessage{
		json.RawMessage(`{"titleId":"CUSA00001_00","name":"Bloodborne","category":"ps4_game","imageUrl":"https://img.example/bb.png",
			"playCount":12,"firstPlayedDateTime":"2015-03-24T00:00:00Z","lastPlayedDateTime":"2025-01-01T00:00:00Z","playDuration":"PT120H"}`),
	}}
	rec := doRequest(t, newTestMux(t, client), http.MethodGet, "/api/users/ape/games", "")
	body := decodeBody[struct {
		OnlineID   string           `json:"online_id"`
		TotalGames int              `json:"total_games"`
		Games      []map[string]any `json:"games"`
	}](t, rec)
	if body.OnlineID != "ape" || body.TotalGames != 1 || len(body.Games) != 1 {
		t.Fatalf("envelope = %s", rec.Body)
	}
	got := body.Games[0]
	if got["name"] != "Bloodborne" || got["title_id"] != "CUSA00001_00" || got["platform"] != "ps4_game" {
		t.Errorf("game = %v", got)
	}
	if got["play_count"] != float64(12) || got["play_duration"] != "PT120H" {
		t.Errorf("play stats = %v", got)
	}
}

func TestInvalidLimitRejected(t *testing.T) {
	rec := doRequest(t, newTestMux(t, &fakeClient{}), http.MethodGet, "/api/users/ape/games?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidationMiddlewareEnforcesContract(t *testing.T) {
	handler := ValidationMiddleware(oapi.FS, oapi.SpecPath)(newTestMux(t, &fakeClient{}))

	// missing required query parameter
	rec := doRequest(t, handler, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query: status = %d, want 400", rec.Code)
	}

	// body violating the schema is unprocessable, not merely bad
	rec = doRequest(t, handler, http.MethodPost, "/api/users/batch", `{"users":[]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty batch: status = %d, want 422", rec.Code)
	}

	// a valid request passes through to the handler
	rec = doRequest(t, handler, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status route: status = %d, want 200", rec.Code)
	}
}

func TestRecoverMiddlewareWritesProblem(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := doRequest(t, RecoverHTTPMiddleware()(panicky), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
}
