// Package tme ищет самый ранний публичный пост на t.me.
package tme

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultBaseURL = "https://t.me"
	userAgent      = "Mozilla/5.0 (compatible; dateregbot/1.0)"
	maxPageSize    = 2 << 20
)

type Scraper struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
	pages   int
	timeout time.Duration
}

func NewScraper(logger *slog.Logger, baseURL string, pages int, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		client:  &http.Client{},
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		pages:   pages,
		timeout: timeout,
	}
}

// Earliest обходит t.me/<username>, t.me/<username>/2 ... и возвращает минимальную дату <time>
func (s *Scraper) Earliest(ctx context.Context, username string) (time.Time, bool) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return time.Time{}, false
	}

	base := s.baseURL + "/" + url.PathEscape(username)
	var earliest time.Time
	for page := 1; page <= s.pages; page++ {
		if ctx.Err() != nil {
			break
		}
		u := base
		if page > 1 {
			u = fmt.Sprintf("%s/%d", base, page)
		}

		times, err := s.fetchTimes(ctx, u)
		if err != nil {
			s.logger.Debug("t.me page skipped", "url", u, "error", err)
			continue
		}
		for _, ts := range times {
			if earliest.IsZero() || ts.Before(earliest) {
				earliest = ts
			}
		}
	}
	return earliest, !earliest.IsZero()
}

func (s *Scraper) fetchTimes(ctx context.Context, u string) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return ExtractTimes(io.LimitReader(resp.Body, maxPageSize))
}

// ExtractTimes собирает даты из атрибутов datetime (или title) всех тегов <time>
func ExtractTimes(r io.Reader) ([]time.Time, error) {
	var out []time.Time
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return out, nil
			}
			return out, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "time" {
				continue
			}
			if ts, ok := parseTimeAttr(tok.Attr); ok {
				out = append(out, ts)
			}
		}
	}
}

func parseTimeAttr(attrs []html.Attribute) (time.Time, bool) {
	var datetime, title string
	for _, a := range attrs {
		switch a.Key {
		case "datetime":
			datetime = a.Val
		case "title":
			title = a.Val
		}
	}
	val := datetime
	if val == "" {
		val = title
	}
	if val == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(val))
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
