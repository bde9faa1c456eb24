package statsclient

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

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"
)

// Client 主服务访问统计服务的 HTTP 客户端
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Record POST /hit
func (c *Client) Record(ctx context.Context, hit pkg.EndpointHit) error {
	body, err := json.Marshal(hit)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post hit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return unexpected(resp)
	}
	return nil
}

// Stats GET /stats，nil 边界不传
func (c *Client) Stats(ctx context.Context, start, end *time.Time, uris []string, unique bool) ([]model.ViewStats, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start", start.In(time.Local).Format(pkg.DateTimeLayout))
	}
	if end != nil {
		q.Set("end", end.In(time.Local).Format(pkg.DateTimeLayout))
	}
	for _, u := range uris {
		q.Add("uris", u)
	}
	q.Set("unique", strconv.FormatBool(unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, unexpected(resp)
	}
	var list []model.ViewStats
	if err = json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return list, nil
}

// CountViewsForMany 按 uri 汇总各应用的访问量，未出现的 uri 记 0
func (c *Client) CountViewsForMany(ctx context.Context, uris []string, start, end *time.Time, distinct bool) (map[string]int64, error) {
	out := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return out, nil
	}
	list, err := c.Stats(ctx, start, end, uris, distinct)
	if err != nil {
		return nil, err
	}
	for _, u := range uris {
		out[u] = 0
	}
	for _, s := range list {
		out[s.URI] += s.Hits
	}
	return out, nil
}

func unexpected(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("stats service %s: %s", resp.Status, strings.TrimSpace(string(b)))
}
