package chromedp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/shoplens/shoplens/models"
)

// Scrape renders a product page headlessly and extracts attributes from the
// rendered DOM. Extraction is intentionally best-effort: storefront markup
// shifts constantly, and a missing field degrades to empty rather than
// failing the scrape.
type Scrape struct {
	Timeout  time.Duration
	MaxChars int
}

func (s Scrape) Scrape(ctx context.Context, rawURL string, key models.ProductKey) (models.ProductAttributes, error) {
	if strings.TrimSpace(rawURL) == "" {
		return models.ProductAttributes{}, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	page, err := fetchPage(ctx, rawURL)
	if err != nil {
		return models.ProductAttributes{}, fmt.Errorf("render %s: %w", rawURL, err)
	}
	if looksLikeCaptcha(page.html) {
		return models.ProductAttributes{}, fmt.Errorf("bot check page served for %s", rawURL)
	}

	attrs := models.ProductAttributes{
		ProductID:    key.ID,
		Platform:     key.Platform,
		URL:          rawURL,
		Title:        cleanText(page.title),
		Price:        page.price,
		Rating:       parseRating(page.rating),
		Availability: cleanText(page.availability),
		Images:       page.images,
	}
	if attrs.Title == "" {
		return models.ProductAttributes{}, fmt.Errorf("no product title found at %s", rawURL)
	}

	// Readability gives a usable description block when selectors miss.
	if article, err := readability.FromReader(strings.NewReader(page.html), mustParseURL(rawURL)); err == nil {
		desc := strings.TrimSpace(article.TextContent)
		if len(desc) > s.MaxChars {
			desc = desc[:s.MaxChars]
		}
		attrs.Description = desc
	}

	for _, f := range strings.Split(page.features, "\n") {
		if f = cleanText(f); f != "" {
			attrs.Features = append(attrs.Features, f)
		}
	}

	attrs.Brand = cleanBrand(page.brand)
	attrs.Specifications = cleanSpecs(page.specs)
	for i, r := range page.reviews {
		if i >= maxReviews {
			break
		}
		rev := models.Review{
			Rating: parseRating(r.Rating),
			Title:  cleanText(r.Title),
			Text:   cleanText(r.Text),
			Author: cleanText(r.Author),
			Date:   cleanText(r.Date),
		}
		if rev.Text == "" {
			continue
		}
		attrs.Reviews = append(attrs.Reviews, rev)
	}
	return attrs, nil
}

const maxReviews = 5

type pageData struct {
	html         string
	title        string
	price        string
	rating       string
	availability string
	brand        string
	features     string
	specs        map[string]string
	reviews      []pageReview
	images       []string
}

type pageReview struct {
	Rating string `json:"rating"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Author string `json:"author"`
	Date   string `json:"date"`
}

// selectors per platform, first match wins
var (
	titleSelectors  = []string{"#productTitle", "span.B_NuCI", "h1"}
	priceSelectors  = []string{".a-price .a-offscreen", "._30jeq3._16Jk6d", ".a-price-whole"}
	ratingSelectors = []string{
		"#acrPopover .a-icon-alt", "._3LWZlK", ".a-icon-star .a-icon-alt",
	}
	availabilitySelectors = []string{"#availability span", "._16FRp0"}
	brandSelectors        = []string{"#bylineInfo", "._2J4LW6"}
	featureSelectors      = []string{"#feature-bullets", "._2418kt"}
)

func fetchPage(ctx context.Context, rawURL string) (pageData, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var page pageData
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page.html, chromedp.ByQuery),
		chromedp.Evaluate(selectorScript(titleSelectors), &page.title),
		chromedp.Evaluate(selectorScript(priceSelectors), &page.price),
		chromedp.Evaluate(selectorScript(ratingSelectors), &page.rating),
		chromedp.Evaluate(selectorScript(availabilitySelectors), &page.availability),
		chromedp.Evaluate(selectorScript(brandSelectors), &page.brand),
		chromedp.Evaluate(selectorScript(featureSelectors), &page.features),
		chromedp.Evaluate(specScript, &page.specs),
		chromedp.Evaluate(reviewScript, &page.reviews),
		chromedp.Evaluate(imageScript, &page.images),
	)
	return page, err
}

// selectorScript returns the text of the first selector that matches.
func selectorScript(selectors []string) string {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = fmt.Sprintf("%q", sel)
	}
	return fmt.Sprintf(`(() => {
		for (const sel of [%s]) {
			const el = document.querySelector(sel);
			if (el && el.textContent.trim()) return el.textContent.trim();
		}
		return "";
	})()`, strings.Join(quoted, ","))
}

// specScript collects key/value rows from the detail tables of either
// storefront into one object.
const specScript = `(() => {
	const out = {};
	for (const row of document.querySelectorAll("#productDetails_techSpec_section_1 tr, #productDetails_detailBullets_sections1 tr")) {
		const k = row.querySelector("th"), v = row.querySelector("td");
		if (k && v) out[k.textContent.trim()] = v.textContent.trim();
	}
	for (const row of document.querySelectorAll("._14cfVK")) {
		const k = row.querySelector("._1hKmbr"), v = row.querySelector(".URwL2w");
		if (k && v) out[k.textContent.trim()] = v.textContent.trim();
	}
	return out;
})()`

const reviewScript = `(() => {
	const out = [];
	for (const el of document.querySelectorAll('div[data-hook="review"]')) {
		out.push({
			rating: (el.querySelector('[data-hook="review-star-rating"] .a-icon-alt') || {}).textContent || "",
			title: (el.querySelector('[data-hook="review-title"] span:not([class])') || el.querySelector('[data-hook="review-title"]') || {}).textContent || "",
			text: (el.querySelector('[data-hook="review-body"]') || {}).textContent || "",
			author: (el.querySelector('.a-profile-name') || {}).textContent || "",
			date: (el.querySelector('[data-hook="review-date"]') || {}).textContent || "",
		});
		if (out.length >= 10) break;
	}
	for (const el of document.querySelectorAll("._27M-vq")) {
		out.push({
			rating: (el.querySelector("._3LWZlK") || {}).textContent || "",
			title: (el.querySelector("._2-N8zT") || {}).textContent || "",
			text: (el.querySelector(".t-ZTKy") || {}).textContent || "",
			author: (el.querySelector("._2sc7ZR._2V5EHH") || {}).textContent || "",
			date: "",
		});
		if (out.length >= 10) break;
	}
	return out;
})()`

const imageScript = `(() => {
	const out = [];
	for (const img of document.querySelectorAll("#altImages img, ._2r_T1I img, #landingImage")) {
		if (img.src && !img.src.startsWith("data:")) out.push(img.src);
		if (out.length >= 8) break;
	}
	return out;
})()`

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	ratingOutOf  = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*out of\s*(\d+)`)
	ratingPlain  = regexp.MustCompile(`(\d+\.?\d*)`)
)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// cleanBrand strips the storefront wrapping ("Visit the X Store", "Brand: X")
// down to the brand name itself.
func cleanBrand(s string) string {
	s = cleanText(s)
	s = strings.TrimPrefix(s, "Visit the ")
	s = strings.TrimSuffix(s, " Store")
	s = strings.TrimPrefix(s, "Brand: ")
	return s
}

func cleanSpecs(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		k, v = cleanText(k), cleanText(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseRating(s string) string {
	if s == "" {
		return ""
	}
	if m := ratingOutOf.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + m[2]
	}
	if m := ratingPlain.FindStringSubmatch(s); m != nil {
		return m[1] + "/5"
	}
	return ""
}

var captchaIndicators = []string{
	"captcha",
	"robot check",
	"enter the characters you see",
	"automated access",
}

func looksLikeCaptcha(html string) bool {
	if len(html) > 10000 {
		return false
	}
	lower := strings.ToLower(html)
	for _, ind := range captchaIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
