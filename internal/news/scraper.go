package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"crypto-signal-engine/internal/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HeadlineSourceConfig is one page to read titles from.
type HeadlineSourceConfig struct {
	Name     string
	URL      string
	Selector string
}

// Scraper collects headline titles from configured pages.
type Scraper struct {
	sources   []HeadlineSourceConfig
	timeout   time.Duration
	maxTitles int
	limiter   *rate.Limiter
}

// NewScraper paces requests to one source every two seconds.
func NewScraper(sources []HeadlineSourceConfig, timeout time.Duration, maxTitles int) *Scraper {
	if maxTitles <= 0 || maxTitles > maxHighlights {
		maxTitles = maxHighlights
	}
	return &Scraper{
		sources:   sources,
		timeout:   timeout,
		maxTitles: maxTitles,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Headlines returns up to maxTitles distinct titles across every source.
// A failing source is skipped; an error is returned only when none yields
// anything.
func (s *Scraper) Headlines(ctx context.Context) ([]string, error) {
	logger.Info(ctx, "Starting headline scraping", "sources", len(s.sources))

	var titles []string
	seen := map[string]bool{}
	var lastErr error

	for _, src := range s.sources {
		if len(titles) >= s.maxTitles {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return titles, err
		}
		got, err := s.scrapeSource(ctx, src)
		if err != nil {
			lastErr = err
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", src.Name)
			continue
		}
		for _, t := range got {
			key := strings.ToLower(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			titles = append(titles, t)
			if len(titles) >= s.maxTitles {
				break
			}
		}
	}

	logger.Info(ctx, "Headline scraping completed", "titles", len(titles))
	if len(titles) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return titles, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, src HeadlineSourceConfig) ([]string, error) {
	var titles []string

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(src.URL)),
		colly.MaxDepth(1),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnHTML(src.Selector, func(e *colly.HTMLElement) {
		if len(titles) >= s.maxTitles {
			return
		}
		if t := CleanTitle(e.DOM.Text()); t != "" {
			titles = append(titles, t)
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
		logger.Debug(ctx, "Scraping error", "source", src.Name, "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	if err := c.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", src.URL, err)
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	return titles, nil
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
