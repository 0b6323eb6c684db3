package pricesearch

import (
	"context"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/tools/pricesearch/serper"
)

// PriceSearcher finds competitor listings for a product. Implementations
// should already try to exclude the source platform, but callers must not
// rely on it; the merge step filters again.
type PriceSearcher interface {
	Compare(ctx context.Context, productName, sourcePlatform string) ([]models.Listing, error)
}

type Provider string

const (
	SerperProvider   Provider = "serper"
	DisabledProvider Provider = "disabled"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewPriceSearcher selects the search strategy. An empty API key degrades to
// the disabled variant, which contributes an empty result rather than failing.
func NewPriceSearcher(provider Provider, apiKey, location string, maxResults int) (PriceSearcher, error) {
	if apiKey == "" {
		provider = DisabledProvider
	}
	switch provider {
	case SerperProvider:
		return serper.Shopping{ApiKey: apiKey, Location: location, MaxResults: maxResults}, nil
	case DisabledProvider:
		return Disabled{}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Disabled is the no-op variant used when price comparison is not configured.
type Disabled struct{}

func (Disabled) Compare(ctx context.Context, productName, sourcePlatform string) ([]models.Listing, error) {
	return nil, nil
}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }
