package models

import (
	"errors"
	"time"
)

// Sentinel errors shared by the cache and orchestration layers.
var (
	ErrNotCached      = errors.New("record not cached")
	ErrInvalidURL     = errors.New("unsupported product url")
	ErrScrapeFailed   = errors.New("product scrape failed")
	ErrAnalysisFailed = errors.New("product analysis failed")
)

// ProductKey identifies a product across requests: the source platform plus
// the platform-native identifier (ASIN for amazon, FSN for flipkart).
type ProductKey struct {
	Platform string `json:"platform"`
	ID       string `json:"id"`
}

func (k ProductKey) String() string { return k.Platform + ":" + k.ID }

func (k ProductKey) IsZero() bool { return k.Platform == "" || k.ID == "" }

// ProductAttributes is what a scraper returns for one product page.
type ProductAttributes struct {
	ProductID      string            `json:"product_id"`
	Platform       string            `json:"platform"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Brand          string            `json:"brand,omitempty"`
	Price          string            `json:"price,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	Rating         string            `json:"rating,omitempty"`
	TotalReviews   string            `json:"total_reviews,omitempty"`
	Description    string            `json:"description,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Reviews        []Review          `json:"reviews,omitempty"`
	Availability   string            `json:"availability,omitempty"`
}

// Review is one customer review scraped from the product page.
type Review struct {
	Rating string `json:"rating"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Listing is one competitor offer found by the price search.
type Listing struct {
	Site     string  `json:"site"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	URL      string  `json:"url"`
	InStock  bool    `json:"in_stock"`
}

// PriceComparison is the merged competitor-price block of a ProductRecord.
// Listings never include offers from the source platform itself.
type PriceComparison struct {
	Listings   []Listing `json:"listings"`
	TotalFound int       `json:"total_found"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Finding is one AI-filtered external source (review page, thread, article).
type Finding struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ReputationFindings holds the web-reputation block of a ProductRecord.
type ReputationFindings struct {
	ExternalReviews   []Finding `json:"external_reviews,omitempty"`
	IssueDiscussions  []Finding `json:"issue_discussions,omitempty"`
	RedditDiscussions []Finding `json:"reddit_discussions,omitempty"`
	NewsArticles      []Finding `json:"news_articles,omitempty"`
	KeyFindings       []string  `json:"key_findings,omitempty"`
	RedFlags          []string  `json:"red_flags,omitempty"`
	Sentiment         string    `json:"sentiment,omitempty"`
	TotalSources      int       `json:"total_sources"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// ProductRecord is the whole-record cache entry for one ProductKey. A write
// always replaces the full record; sub-blocks are never patched in place.
type ProductRecord struct {
	Key             ProductKey         `json:"key"`
	Attributes      ProductAttributes  `json:"attributes"`
	PriceComparison PriceComparison    `json:"price_comparison"`
	Reputation      ReputationFindings `json:"reputation"`
	ScrapedAt       time.Time          `json:"scraped_at"`
}

// StructuredFindings carries the machine-readable part of an analysis.
type StructuredFindings struct {
	Pros    []string `json:"pros,omitempty"`
	Cons    []string `json:"cons,omitempty"`
	Verdict string   `json:"verdict,omitempty"`
}

// AnalysisRecord caches the generated report for a ProductRecord. It is only
// ever written after the ProductRecord it was computed from.
type AnalysisRecord struct {
	Key         ProductKey         `json:"key"`
	ReportText  string             `json:"report_text"`
	Findings    StructuredFindings `json:"findings"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AnalyzeOptions selects the optional branches of a cold run. A disabled
// branch is never invoked and contributes an empty block to the record.
type AnalyzeOptions struct {
	IncludePriceComparison bool `json:"include_price_comparison"`
	IncludeWebSearch       bool `json:"include_web_search"`
}
