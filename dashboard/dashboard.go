// Package dashboard renders the service catalog as a static HTML page and
// decorates it with service icons.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"service-dashboard/catalog"
	"service-dashboard/icons"
	"service-dashboard/models"

	"github.com/rs/zerolog/log"
)

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("dashboard.html.tmpl").
		Funcs(template.FuncMap{"statusClass": statusClass}).
		ParseFS(templateFS, "templates/dashboard.html.tmpl"),
)

// Page is the data the dashboard template is rendered with
type Page struct {
	Title   string
	Heading string
	Groups  []catalog.Group
	// MarkerClass is set on every service element so the injector can find it
	MarkerClass string
	// Statuses holds the last known state per service name. Services without
	// an entry render with a neutral indicator.
	Statuses map[string]models.Status
	// StatusEndpoint enables the in-page poller when set
	StatusEndpoint string
	PollInterval   time.Duration
}

// NewPage builds a page for services with the default titles
func NewPage(services []models.Service, markerClass string) Page {
	if markerClass == "" {
		markerClass = "service"
	}
	return Page{
		Title:        "Service Dashboard",
		Heading:      "Self-Hosted Service Dashboard",
		Groups:       catalog.GroupByCategory(services),
		MarkerClass:  markerClass,
		PollInterval: 5 * time.Second,
	}
}

// PollMillis is the poll interval in milliseconds as used by the page script
func (p Page) PollMillis() int64 {
	if p.PollInterval <= 0 {
		return 5000
	}
	return p.PollInterval.Milliseconds()
}

func statusClass(statuses map[string]models.Status, name string) string {
	st, ok := statuses[name]
	switch {
	case !ok:
		return "status"
	case st.Up:
		return "status up"
	default:
		return "status down"
	}
}

// Render writes the undecorated page to w
func Render(w io.Writer, page Page) error {
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// Build renders page and runs inj over the result. A nil injector returns the
// plain page.
func Build(ctx context.Context, page Page, inj *icons.Injector) ([]byte, icons.Report, error) {
	var plain bytes.Buffer
	if err := Render(&plain, page); err != nil {
		return nil, icons.Report{}, err
	}
	if inj == nil {
		return plain.Bytes(), icons.Report{}, nil
	}

	var out bytes.Buffer
	report, err := inj.InjectHTML(ctx, &plain, &out)
	if err != nil {
		return nil, report, fmt.Errorf("failed to inject icons: %w", err)
	}

	log.Info().
		Int("services", report.Matched).
		Int("resolved", report.Resolved).
		Int("fallback", report.Fallback).
		Int("skipped", report.Skipped).
		Msg("Dashboard built")
	return out.Bytes(), report, nil
}
