package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreateAccount(ctx context.Context, id int64, displayName, referralToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/accounts", map[string]any{
		"id":             id,
		"display_name":   displayName,
		"referral_token": referralToken,
	}, &out)
	return out, err
}

func (c *Client) Account(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id), nil, &out)
	return out, err
}

func (c *Client) Owned(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id)+"/owned", nil, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id)+"/history", nil, &out)
	return out, err
}

func (c *Client) WorkStatus(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id)+"/work", nil, &out)
	return out, err
}

func (c *Client) Profit(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id)+"/profit", nil, &out)
	return out, err
}

func (c *Client) UpgradeInfo(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/"+formatID(id)+"/upgrade", nil, &out)
	return out, err
}

func (c *Client) Purchase(ctx context.Context, buyerID, assetID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/purchase", map[string]any{
		"buyer_id": buyerID,
		"asset_id": assetID,
	}, &out)
	return out, err
}

func (c *Client) Liberate(ctx context.Context, assetID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/liberate", map[string]any{
		"asset_id": assetID,
	}, &out)
	return out, err
}

func (c *Client) Shield(ctx context.Context, ownerID, assetID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shield", map[string]any{
		"owner_id": ownerID,
		"asset_id": assetID,
	}, &out)
	return out, err
}

func (c *Client) Upgrade(ctx context.Context, ownerID, assetID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/upgrade", map[string]any{
		"owner_id": ownerID,
		"asset_id": assetID,
	}, &out)
	return out, err
}

func (c *Client) Transfer(ctx context.Context, fromID, toID, amount int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/transfer", map[string]any{
		"from_id": fromID,
		"to_id":   toID,
		"amount":  amount,
	}, &out)
	return out, err
}

func (c *Client) SendToWork(ctx context.Context, ownerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/work/send", map[string]any{
		"owner_id": ownerID,
	}, &out)
	return out, err
}

func (c *Client) CollectRewards(ctx context.Context, ownerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/work/collect", map[string]any{
		"owner_id": ownerID,
	}, &out)
	return out, err
}

func (c *Client) Browse(ctx context.Context, sort string, excludeID int64, limit int) (map[string]any, error) {
	q := url.Values{}
	if sort != "" {
		q.Set("sort", sort)
	}
	if excludeID != 0 {
		q.Set("exclude_id", formatID(excludeID))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/market"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) MarketStats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market/stats", nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, category string, limit int) (map[string]any, error) {
	path := "/v1/leaderboard/" + url.PathEscape(category)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, pattern string, excludeID int64) (map[string]any, error) {
	q := url.Values{}
	q.Set("q", pattern)
	if excludeID != 0 {
		q.Set("exclude_id", formatID(excludeID))
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/search?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) RunJob(ctx context.Context, name string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
