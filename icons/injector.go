package icons

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

// DecoratedAttr marks elements that already carry an icon when SkipDecorated is on
const DecoratedAttr = "data-icon"

// Options configures an Injector
type Options struct {
	Source       Source
	MarkerClass  string
	FallbackIcon string
	Width        int
	MarginRight  int
	// ProbeTimeout bounds each icon probe. Zero means no timeout.
	ProbeTimeout time.Duration
	Concurrency  int
	// SkipDecorated tags decorated elements and skips them on later runs.
	SkipDecorated bool
}

// DefaultOptions returns the options used by the dashboard page
func DefaultOptions(src Source) Options {
	return Options{
		Source:       src,
		MarkerClass:  "service",
		FallbackIcon: "/assets/default-icon.png",
		Width:        20,
		MarginRight:  8,
		ProbeTimeout: 10 * time.Second,
		Concurrency:  8,
	}
}

// Report summarizes a single Inject run
type Report struct {
	Matched  int
	Resolved int
	Fallback int
	Skipped  int
}

// Injector prepends an icon to every element carrying the marker class
type Injector struct {
	opts     Options
	resolver Resolver
	matcher  cascadia.Selector
}

// NewInjector creates an Injector resolving icons through resolver
func NewInjector(opts Options, resolver Resolver) (*Injector, error) {
	class := strings.TrimSpace(opts.MarkerClass)
	if class == "" || strings.ContainsAny(class, " \t\r\n") {
		return nil, fmt.Errorf("invalid marker class %q", opts.MarkerClass)
	}
	matcher, err := cascadia.Compile("." + class)
	if err != nil {
		return nil, fmt.Errorf("failed to compile marker selector: %w", err)
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Injector{
		opts:     opts,
		resolver: resolver,
		matcher:  matcher,
	}, nil
}

type probeJob struct {
	el        *goquery.Selection
	name      string
	candidate string
}

type probeResult struct {
	probeJob
	err error
}

// Inject decorates every marked element of doc with exactly one icon.
// Probes run concurrently; the document is only mutated on the calling goroutine.
// If ctx is cancelled the elements still waiting for their probe are left untouched.
func (inj *Injector) Inject(ctx context.Context, doc *goquery.Document) (Report, error) {
	var report Report
	var jobs []probeJob

	doc.FindMatcher(inj.matcher).Each(func(_ int, s *goquery.Selection) {
		report.Matched++
		if inj.opts.SkipDecorated {
			if _, ok := s.Attr(DecoratedAttr); ok {
				report.Skipped++
				return
			}
		}
		name := TrimName(s.Text())
		jobs = append(jobs, probeJob{
			el:        s,
			name:      name,
			candidate: inj.opts.Source.CandidateURL(name),
		})
	})

	if len(jobs) == 0 {
		return report, nil
	}

	results := make(chan probeResult, len(jobs))
	go func() {
		var g errgroup.Group
		g.SetLimit(inj.opts.Concurrency)
		for _, job := range jobs {
			g.Go(func() error {
				results <- probeResult{probeJob: job, err: inj.probe(ctx, job.candidate)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case res, ok := <-results:
			if !ok {
				return report, nil
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if res.err != nil {
				log.Debug().Err(res.err).Str("service", res.name).Str("url", res.candidate).Msg("Icon not found, using fallback")
				inj.prepend(res.el, inj.opts.FallbackIcon, "Default Icon", "fallback")
				report.Fallback++
				continue
			}
			inj.prepend(res.el, res.candidate, res.name+" Icon", "resolved")
			report.Resolved++
		}
	}
}

// InjectHTML parses a whole HTML document from r, decorates it and writes it to w
func (inj *Injector) InjectHTML(ctx context.Context, r io.Reader, w io.Writer) (Report, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	report, err := inj.Inject(ctx, doc)
	if err != nil {
		return report, err
	}

	if err := html.Render(w, doc.Nodes[0]); err != nil {
		return report, fmt.Errorf("failed to render HTML: %w", err)
	}
	return report, nil
}

func (inj *Injector) probe(ctx context.Context, candidate string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if inj.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inj.opts.ProbeTimeout)
		defer cancel()
	}
	return inj.resolver.Resolve(ctx, candidate)
}

func (inj *Injector) prepend(el *goquery.Selection, src, alt, outcome string) {
	img := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Img,
		Data:     "img",
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "alt", Val: alt},
			{Key: "style", Val: fmt.Sprintf("width: %dpx; margin-right: %dpx;", inj.opts.Width, inj.opts.MarginRight)},
		},
	}
	el.PrependNodes(img)
	if inj.opts.SkipDecorated {
		el.SetAttr(DecoratedAttr, outcome)
	}
}
