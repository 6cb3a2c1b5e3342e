package firecrawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mendableai/firecrawl-go"
	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/pkg/utils"
)

func newTestClient(fn scrapeFunc, timeout time.Duration) *Client {
	return &Client{scrape: fn, timeout: timeout, logger: logging.NewNopLogger()}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(config.FirecrawlConfig{APIURL: "https://api.firecrawl.dev"}, logging.NewNopLogger())
	require.Error(t, err)
}

func TestFetchReturnsHTML(t *testing.T) {
	var params *firecrawl.ScrapeParams
	c := newTestClient(func(url string, p *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
		params = p
		return &firecrawl.FirecrawlDocument{HTML: "<table></table>"}, nil
	}, 0)

	html, err := c.Fetch(context.Background(), "https://www.mundotoro.com/escalafon-toreros")
	require.NoError(t, err)
	require.Equal(t, "<table></table>", html)
	require.Equal(t, []string{"html"}, params.Formats)
}

func TestFetchErrorsAreFetchErrors(t *testing.T) {
	cases := map[string]scrapeFunc{
		"api error": func(string, *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
			return nil, errors.New("402 payment required")
		},
		"nil document": func(string, *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
			return nil, nil
		},
		"no html": func(string, *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
			return &firecrawl.FirecrawlDocument{Markdown: "# hola"}, nil
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(fn, 0).Fetch(context.Background(), "https://example.com")
			var fetchErr *utils.FetchError
			require.ErrorAs(t, err, &fetchErr)
		})
	}
}

func TestFetchHonorsTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	c := newTestClient(func(string, *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
		<-block
		return nil, nil
	}, 20*time.Millisecond)

	_, err := c.Fetch(context.Background(), "https://example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
