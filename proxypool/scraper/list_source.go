package scraper

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/gocolly/colly/v2"
)

// ListSource fetches a remote proxy list. Plain-text bodies are split into lines;
// HTML pages are parsed for "ip | port" table rows, falling back to the page text.
type ListSource struct {
	url        string
	collector  *colly.Collector
	userAgents []string
}

// NewListSource 创建一个新的 ListSource 实例。
func NewListSource(url string, timeout time.Duration, userAgents []string) *ListSource {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	return &ListSource{
		url:        url,
		collector:  c,
		userAgents: userAgents,
	}
}

func (s *ListSource) Name() string {
	return s.url
}

func (s *ListSource) Fetch(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Clone keeps the collector settings but not the callbacks of earlier fetches.
	c := s.collector.Clone()
	c.Context = ctx

	var lines []string
	var parseErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.pickUserAgent())
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode != 200 {
			parseErr = fmt.Errorf("received non-200 status code (%d) from %s", r.StatusCode, s.url)
			return
		}
		lines, parseErr = parseBody(r.Headers.Get("Content-Type"), r.Body)
	})

	if err := c.Visit(s.url); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return lines, nil
}

func (s *ListSource) pickUserAgent() string {
	if len(s.userAgents) == 0 {
		return uarand.GetRandom()
	}
	return s.userAgents[rand.IntN(len(s.userAgents))]
}

func parseBody(contentType string, body []byte) ([]string, error) {
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return splitLines(string(body)), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string
	doc.Find("tr").Each(func(_ int, sel *goquery.Selection) {
		cells := sel.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if net.ParseIP(ip) == nil {
			return
		}
		if _, err := strconv.Atoi(port); err != nil {
			return
		}
		lines = append(lines, net.JoinHostPort(ip, port))
	})
	if len(lines) > 0 {
		return lines, nil
	}

	return splitLines(doc.Find("body").Text()), nil
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
