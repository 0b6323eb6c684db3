package scraper

import (
	"context"
	"time"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/tools/scraper/chromedp"
)

const (
	DefaultTimeout  = 20 * time.Second
	MaxCharsDefault = 20000
)

// Scraper fetches a product page and returns its raw attributes. A scrape
// failure is fatal to a cold analysis run: there is nothing to analyze
// without base product data.
type Scraper interface {
	Scrape(ctx context.Context, url string, key models.ProductKey) (models.ProductAttributes, error)
}

type FetcherType string

const (
	ChromedpFetcherType FetcherType = "chromedp"
)

func NewScraper(fetcherType FetcherType, timeout time.Duration, maxChars int) (Scraper, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case ChromedpFetcherType:
		return &chromedp.Scrape{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, &Error{"unsupported fetcher type"}
	}
}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }
