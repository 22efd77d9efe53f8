package icons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var errNoResponse = errors.New("no response received")

// HTTPResolver probes icon URLs with plain HTTP requests
type HTTPResolver struct {
	collector *colly.Collector
}

// NewHTTPResolver creates an HTTPResolver allowing up to parallelism
// concurrent requests per icon host
func NewHTTPResolver(timeout time.Duration, parallelism int) *HTTPResolver {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(2<<20),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if parallelism > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: parallelism}); err != nil {
			log.Warn().Err(err).Msg("Failed to set icon request limit")
		}
	}

	return &HTTPResolver{collector: c}
}

// Resolve fetches url and accepts it when the response decodes as an image
func (r *HTTPResolver) Resolve(ctx context.Context, url string) error {
	c := r.collector.Clone()
	c.Context = ctx

	result := errNoResponse
	c.OnRequest(func(req *colly.Request) {
		req.Headers.Set("Accept", "image/avif,image/webp,image/svg+xml,image/*,*/*;q=0.8")
	})
	c.OnResponse(func(resp *colly.Response) {
		contentType := resp.Headers.Get("Content-Type")
		if !looksLikeImage(contentType, resp.Body) {
			result = fmt.Errorf("%w: %s", ErrNotImage, contentType)
			return
		}
		result = nil
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			result = fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			return
		}
		result = err
	})

	if err := c.Visit(url); err != nil {
		if result != nil && !errors.Is(result, errNoResponse) {
			return result
		}
		return fmt.Errorf("failed to fetch icon: %w", err)
	}
	c.Wait()

	return result
}

func looksLikeImage(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	if strings.HasPrefix(http.DetectContentType(body), "image/") {
		return true
	}
	// DetectContentType reports SVG documents as XML or plain text
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
