package web_search

import (
	"context"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/tools/web_search/brave"
	"github.com/shoplens/shoplens/tools/web_search/serper"
)

// WebSearcher runs one web query and returns result snippets. Sites listed in
// exclude are filtered out of the query (the source platform's own review
// pages are never useful as external reputation).
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int, exclude []string) ([]models.Finding, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }
