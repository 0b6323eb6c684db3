package orchestrator

import (
	"sort"
	"strings"
	"time"

	"github.com/shoplens/shoplens/models"
)

const maxCompetitorListings = 5

// merge combines scraped attributes, price listings and reputation findings
// into one ProductRecord. It is pure and deterministic: the output depends
// only on the inputs, never on which branch finished first.
func merge(key models.ProductKey, attrs models.ProductAttributes, listings []models.Listing, rep models.ReputationFindings, now time.Time) models.ProductRecord {
	kept := excludeSourcePlatform(listings, key.Platform)
	total := len(kept)

	// cheapest first; site then URL break price ties so ordering is stable
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Price != kept[j].Price {
			return kept[i].Price < kept[j].Price
		}
		if kept[i].Site != kept[j].Site {
			return kept[i].Site < kept[j].Site
		}
		return kept[i].URL < kept[j].URL
	})
	if len(kept) > maxCompetitorListings {
		kept = kept[:maxCompetitorListings]
	}

	return models.ProductRecord{
		Key:        key,
		Attributes: attrs,
		PriceComparison: models.PriceComparison{
			Listings:   kept,
			TotalFound: total,
			FetchedAt:  now,
		},
		Reputation: rep,
		ScrapedAt:  now,
	}
}

// excludeSourcePlatform drops listings whose site name contains the source
// platform, case-insensitively. The search collaborator filters upstream too;
// this second pass keeps the invariant even when it does not.
func excludeSourcePlatform(listings []models.Listing, platform string) []models.Listing {
	src := strings.ToLower(strings.TrimSpace(platform))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if src != "" && strings.Contains(strings.ToLower(l.Site), src) {
			continue
		}
		out = append(out, l)
	}
	return out
}
