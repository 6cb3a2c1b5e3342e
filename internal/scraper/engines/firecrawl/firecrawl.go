package firecrawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/pkg/utils"
)

// scrapeFunc matches FirecrawlApp.ScrapeURL
type scrapeFunc func(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)

// Client renders pages remotely through the Firecrawl API and returns the
// resulting HTML. Used for sites that block both plain and headless fetches.
type Client struct {
	scrape  scrapeFunc
	timeout time.Duration
	logger  logging.Logger
}

func New(cfg config.FirecrawlConfig, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firecrawl api key is not configured")
	}

	app, err := firecrawl.NewFirecrawlApp(cfg.APIKey, cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}

	logger.Info("Firecrawl client initialized", map[string]interface{}{
		"api_url": cfg.APIURL,
	})

	return &Client{
		scrape:  app.ScrapeURL,
		timeout: cfg.Timeout,
		logger:  logger.WithField("component", "firecrawl"),
	}, nil
}

type scrapeResult struct {
	doc *firecrawl.FirecrawlDocument
	err error
}

// Fetch returns the rendered HTML of url. The SDK takes no context, so the
// call runs in its own goroutine and is abandoned when ctx ends.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	done := make(chan scrapeResult, 1)
	go func() {
		doc, err := c.scrape(url, &firecrawl.ScrapeParams{Formats: []string{"html"}})
		done <- scrapeResult{doc: doc, err: err}
	}()

	var res scrapeResult
	select {
	case <-ctx.Done():
		return "", &utils.FetchError{URL: url, Err: ctx.Err()}
	case res = <-done:
	}

	if res.err != nil {
		c.logger.Warn("Firecrawl scrape failed", map[string]interface{}{
			"url":   url,
			"error": res.err.Error(),
		})
		return "", &utils.FetchError{URL: url, Err: res.err}
	}
	if res.doc == nil {
		return "", &utils.FetchError{URL: url, Err: errors.New("no document returned from firecrawl")}
	}

	html := res.doc.HTML
	if html == "" {
		return "", &utils.FetchError{URL: url, Err: errors.New("firecrawl returned no html")}
	}

	c.logger.Debug("Firecrawl scrape completed", map[string]interface{}{
		"url":   url,
		"bytes": len(html),
	})
	return html, nil
}
