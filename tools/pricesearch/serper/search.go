package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/utils"
)

// Shopping queries the serper.dev shopping endpoint for competitor listings.
type Shopping struct {
	ApiKey     string
	Location   string
	MaxResults int
}

func (s Shopping) Compare(ctx context.Context, productName, sourcePlatform string) ([]models.Listing, error) {
	k := s.MaxResults
	if k <= 0 {
		k = 20
	}
	payload := map[string]any{"q": productName, "num": k}
	if s.Location != "" {
		payload["location"] = s.Location
	}

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/shopping", strings.NewReader(string(body)))
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper shopping returned status: %d", resp.StatusCode)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	src := strings.ToLower(sourcePlatform)
	var out []models.Listing
	if items, ok := raw["shopping"].([]any); ok {
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			site := utils.Str(m["source"])
			if src != "" && strings.Contains(strings.ToLower(site), src) {
				continue // same-platform offers are not a comparison
			}
			price, currency := ParsePrice(utils.Str(m["price"]))
			if price <= 0 {
				continue
			}
			out = append(out, models.Listing{
				Site:     site,
				Title:    utils.Str(m["title"]),
				Price:    price,
				Currency: currency,
				URL:      utils.Str(m["link"]),
				InStock:  true,
			})
			if len(out) >= k {
				break
			}
		}
	}
	return out, nil
}

var priceDigits = regexp.MustCompile(`[\d,]+\.?\d*`)

// ParsePrice extracts a numeric amount and currency code from a price string
// such as "₹15,999" or "$199.99". Unknown symbols default to INR.
func ParsePrice(s string) (float64, string) {
	currency := "INR"
	switch {
	case strings.Contains(s, "$"):
		currency = "USD"
	case strings.Contains(s, "€"):
		currency = "EUR"
	case strings.Contains(s, "£"):
		currency = "GBP"
	}

	m := priceDigits.FindString(s)
	if m == "" {
		return 0, currency
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, currency
	}
	return v, currency
}
