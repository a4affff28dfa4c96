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

// Package upstream implements the domain.NetworkClient port against the
// console network's JSON gateway. It is deliberately thin: one method maps to
// one GET, responses are decoded and handed back, no retries, no caching.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"psnapi/core/psn/domain"
	"psnapi/modules/telemetry"
)

var _ domain.NetworkClient = (*Client)(nil)

type (
	Client struct {
		http    *http.Client
		base    string
		npsso   string
		lang    string
		metrics *telemetry.UpstreamMetrics
	}

	ClientOption func(*Client)
)

// WithHTTPClient replaces the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithMetrics enables upstream request instrumentation. nil is a no-op.
func WithMetrics(m *telemetry.UpstreamMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// New validates the credential and base URL up front so a misconfigured
// process dies at startup, not on its first request.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.NPSSO) == "" {
		return nil, errors.New("upstream: NPSSO credential must be set")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("upstream: base URL must not be empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("upstream: parse base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		http:  &http.Client{Timeout: timeout},
		base:  base,
		npsso: cfg.NPSSO,
		lang:  cfg.AcceptLanguage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// get performs one upstream GET and decodes the JSON body into out.
// A 404 maps to domain.ErrUserNotFound; any other non-2xx maps to
// domain.ErrUpstream with the status attached.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}
	req.AddCookie(&http.Cookie{Name: "npsso", Value: c.npsso})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(ctx, endpoint, 0, start)
		return fmt.Errorf("%w: %s: %w", domain.ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()
	c.record(ctx, endpoint, resp.StatusCode, start)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404", domain.ErrUserNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		// Drain a little of the body for the log line, never for the client.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrUpstream, endpoint, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrUpstream, endpoint, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, endpoint string, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRequest(ctx, endpoint, strconv.Itoa(status), float64(time.Since(start).Milliseconds()))
}

// ResolveAccountID implements domain.NetworkClient.
func (c *Client) ResolveAccountID(ctx context.Context, onlineID string) (string, error) {
	var body struct {
		Profile struct {
			AccountID string `json:"accountId"`
		} `json:"profile"`
	}
	path := "/userProfile/v1/users/" + url.PathEscape(onlineID) + "/profile2"
	q := url.Values{"fields": {"accountId,onlineId"}}
	if err := c.get(ctx, "resolve", path, q, &body); err != nil {
		return "", err
	}
	if body.Profile.AccountID == "" {
		return "", fmt.Errorf("%w: no account for online id %q", domain.ErrUserNotFound, onlineID)
	}
	return body.Profile.AccountID, nil
}

// Profile implements domain.NetworkClient.
func (c *Client) Profile(ctx context.Context, accountID string) (map[string]any, error) {
	out := map[string]any{}
	path := "/userProfile/v1/internal/users/" + url.PathEscape(accountID) + "/profiles"
	if err := c.get(ctx, "profile", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Presence implements domain.NetworkClient.
func (c *Client) Presence(ctx context.Context, accountID string) (map[string]any, error) {
	out := map[string]any{}
	path := "/userProfile/v1/internal/users/" + url.PathEscape(accountID) + "/basicPresences"
	q := url.Values{"type": {"primary"}}
	if err := c.get(ctx, "presence", path, q, &out); err != nil {
		return nil, err
	}
	// the gateway nests the document under basicPresence
	if inner, ok := out["basicPresence"].(map[string]any); ok {
		return inner, nil
	}
	return out, nil
}

// FriendshipSummary implements domain.NetworkClient.
func (c *Client) FriendshipSummary(ctx context.Context, accountID string) (map[string]any, error) {
	out := map[string]any{}
	path := "/userProfile/v1/internal/users/" + url.PathEscape(accountID) + "/friends/summary"
	if err := c.get(ctx, "friendship", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrophySummary implements domain.NetworkClient.
func (c *Client) TrophySummary(ctx context.Context, accountID string) (domain.TrophySummary, error) {
	var body struct {
		TrophyLevel    int                   `json:"trophyLevel"`
		Progress       int                   `json:"progress"`
		Tier           int                   `json:"tier"`
		EarnedTrophies domain.EarnedTrophies `json:"earnedTrophies"`
	}
	path := "/trophy/v1/users/" + url.PathEscape(accountID) + "/trophySummary"
	if err := c.get(ctx, "trophy_summary", path, nil, &body); err != nil {
		return domain.TrophySummary{}, err
	}
	return domain.TrophySummary{
		Level:    body.TrophyLevel,
		Progress: body.Progress,
		Tier:     body.Tier,
		Earned:   body.EarnedTrophies,
	}, nil
}

// IsBlocking implements domain.NetworkClient by scanning the caller's block
// list for the target account.
func (c *Client) IsBlocking(ctx context.Context, accountID string) (bool, error) {
	var body struct {
		BlockList []string `json:"blockList"`
	}
	if err := c.get(ctx, "blocks", "/userProfile/v1/internal/users/me/blocks", nil, &body); err != nil {
		return false, err
	}
	for _, blocked := range body.BlockList {
		if blocked == accountID {
			return true, nil
		}
	}
	return false, nil
}

// TrophyTitles implements domain.NetworkClient.
func (c *Client) TrophyTitles(ctx context.Context, accountID string, limit int) ([]json.RawMessage, error) {
	var body struct {
		TrophyTitles []json.RawMessage `json:"trophyTitles"`
	}
	path := "/trophy/v1/users/" + url.PathEscape(accountID) + "/trophyTitles"
	if err := c.get(ctx, "trophy_titles", path, limitQuery(limit), &body); err != nil {
		return nil, err
	}
	return body.TrophyTitles, nil
}

// TitleStats implements domain.NetworkClient.
func (c *Client) TitleStats(ctx context.Context, accountID string, limit int) ([]json.RawMessage, error) {
	var body struct {
		Titles []json.RawMessage `json:"titles"`
	}
	path := "/gamelist/v2/users/" + url.PathEscape(accountID) + "/titles"
	if err := c.get(ctx, "title_stats", path, limitQuery(limit), &body); err != nil {
		return nil, err
	}
	return body.Titles, nil
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}
