// Package status checks whether catalog services answer over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"service-dashboard/models"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const userAgent = "service-dashboard/1.0 (+status check)"

// ErrNoServices is returned when there is nothing to check
var ErrNoServices = errors.New("no services to check")

// Checker performs reachability checks against service URLs
type Checker struct {
	collector   *colly.Collector
	concurrency int
	now         func() time.Time
}

// NewChecker creates a Checker with a per-request timeout and a bound on
// how many services are checked at once
func NewChecker(timeout time.Duration, concurrency int) *Checker {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(64<<10),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &Checker{
		collector:   c,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Check requests the service URL once. Any response below 400 counts as up.
func (c *Checker) Check(ctx context.Context, svc models.Service) models.Status {
	st := models.Status{
		Name:     svc.Name,
		URL:      svc.URL,
		Category: svc.Category,
	}

	col := c.collector.Clone()
	col.Context = ctx

	col.OnResponse(func(resp *colly.Response) {
		st.StatusCode = resp.StatusCode
		st.Up = true
	})
	col.OnError(func(resp *colly.Response, err error) {
		if resp != nil {
			st.StatusCode = resp.StatusCode
		}
		// colly reports 2xx/3xx answers other than 200-202 as errors
		if st.StatusCode > 0 && st.StatusCode < http.StatusBadRequest {
			st.Up = true
			return
		}
		st.Up = false
		st.Error = err.Error()
	})

	if err := col.Visit(svc.URL); err != nil && st.Error == "" && !st.Up {
		st.Error = err.Error()
	}
	col.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil && !st.Up && st.Error == "" {
		st.Error = ctxErr.Error()
	}
	st.CheckedAt = c.now().UTC()

	log.Debug().
		Str("service", st.Name).
		Bool("up", st.Up).
		Int("status_code", st.StatusCode).
		Str("error", st.Error).
		Msg("Checked service")
	return st
}

// CheckAll checks every service concurrently; the result order matches services
func (c *Checker) CheckAll(ctx context.Context, services []models.Service) []models.Status {
	statuses := make([]models.Status, len(services))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, svc := range services {
		g.Go(func() error {
			statuses[i] = c.Check(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}
