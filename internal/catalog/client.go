package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/Alexander-D-Karpov/waveline/internal/logx"
)

// Client is a thin HTTP client for the three relevant remote-catalog
// operations: retryablehttp for retries, x/time/rate for throttling, and
// debug logging of each request's path and envelope size (bodies are not logged).
type Client struct {
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	log       *logx.Logger
}

// NewClient builds a Client against baseURL with conservative rate-limit
// defaults (100 req/s, burst 10) and bounded retries.
func NewClient(baseURL string, debug bool) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	if !debug {
		hc.Logger = nil
	}
	return &Client{
		http:      hc,
		limiter:   rate.NewLimiter(rate.Limit(100), 10),
		baseURL:   baseURL,
		userAgent: "waveline/1.0",
		log:       logx.New("CATALOG", debug),
	}
}

// request performs a rate-limited POST of an opaque encrypted envelope and decodes
// a JSON response into out. The envelope's construction is fixed by the remote
// service; callers pass it in pre-built.
func (c *Client) request(ctx context.Context, path string, envelope []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(envelope))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/octet-stream")

	c.log.Printf("POST %s (%d byte envelope)", path, len(envelope))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog: read response %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := firstNonEmpty(apiErr.Error, apiErr.Message, apiErr.Detail, resp.Status)
		return fmt.Errorf("catalog: %s returned HTTP %d: %s", path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("catalog: decode response %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// SongsURL resolves streaming URLs for ids at the given bitrate.
func (c *Client) SongsURL(ctx context.Context, envelope []byte, ids []int64, bitrate int) ([]SongURLInfo, error) {
	var out struct {
		Items []struct {
			ID   int64  `json:"id"`
			URL  string `json:"url"`
			Rate int    `json:"rate"`
		} `json:"items"`
	}
	if err := c.request(ctx, "/song/url", envelope, &out); err != nil {
		return nil, err
	}
	result := make([]SongURLInfo, len(out.Items))
	for i, it := range out.Items {
		result[i] = SongURLInfo{ID: it.ID, URL: it.URL, Rate: it.Rate}
	}
	return result, nil
}

// SongDetail fetches metadata for ids.
func (c *Client) SongDetail(ctx context.Context, envelope []byte, ids []int64) ([]SongDetail, error) {
	var out struct {
		Songs []struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			Artist   string `json:"artist"`
			Duration int64  `json:"duration_ms"`
			Cover    string `json:"cover_url"`
		} `json:"songs"`
	}
	if err := c.request(ctx, "/song/detail", envelope, &out); err != nil {
		return nil, err
	}
	result := make([]SongDetail, len(out.Songs))
	for i, s := range out.Songs {
		result[i] = SongDetail{
			ID:       s.ID,
			Title:    s.Title,
			Artist:   s.Artist,
			Duration: time.Duration(s.Duration) * time.Millisecond,
			CoverURL: s.Cover,
		}
	}
	return result, nil
}

// SongLyric fetches the raw lyric payload for id.
func (c *Client) SongLyric(ctx context.Context, envelope []byte, id int64) (*LyricPayload, error) {
	var out struct {
		Format string `json:"format"`
		Raw    string `json:"raw"`
	}
	if err := c.request(ctx, "/song/lyric", envelope, &out); err != nil {
		return nil, err
	}
	return &LyricPayload{Format: out.Format, Raw: []byte(out.Raw)}, nil
}
