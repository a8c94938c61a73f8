// Package news fetches recent market headlines from RSS feeds, per market.
// Headlines are optional context for a turn: every failure here is
// non-critical and degrades to an empty list.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/stockunlock/stockunlock/pkg/models"
)

// Source is one RSS feed.
type Source struct {
	Name   string
	RSSURL string
	Market models.MarketMode
}

// DefaultSources lists the configured feeds for both markets.
var DefaultSources = []Source{
	{Name: "Moneycontrol", RSSURL: "https://www.moneycontrol.com/rss/marketreports.xml", Market: models.MarketIN},
	{Name: "Economic Times Markets", RSSURL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms", Market: models.MarketIN},
	{Name: "LiveMint Markets", RSSURL: "https://www.livemint.com/rss/markets", Market: models.MarketIN},
	{Name: "Yahoo Finance", RSSURL: "https://finance.yahoo.com/news/rssindex", Market: models.MarketUS},
	{Name: "CNBC Markets", RSSURL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=20910258", Market: models.MarketUS},
}

// cache is a minimal TTL cache for parsed feeds.
type cacheEntry struct {
	items     []models.NewsItem
	expiresAt time.Time
}

// Feed fetches and filters headlines.
type Feed struct {
	sources []Source
	parser  *gofeed.Parser

	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
}

// NewFeed creates a feed over the default sources.
func NewFeed() *Feed {
	return NewFeedWithSources(DefaultSources)
}

// NewFeedWithSources creates a feed with custom sources.
func NewFeedWithSources(sources []Source) *Feed {
	return &Feed{
		sources: sources,
		parser:  gofeed.NewParser(),
		cache:   make(map[string]cacheEntry),
		ttl:     10 * time.Minute,
	}
}

// MarketHeadlines returns recent headlines for one market, newest first.
// Failed sources are skipped; an empty result is not an error.
func (f *Feed) MarketHeadlines(ctx context.Context, market models.MarketMode, limit int) ([]models.NewsItem, error) {
	key := fmt.Sprintf("market:%s:%d", market, limit)
	f.mu.Lock()
	entry, ok := f.cache[key]
	f.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.items, nil
	}

	var all []models.NewsItem
	for _, src := range f.sources {
		if src.Market != market {
			continue
		}
		items, err := f.fetchRSS(ctx, src)
		if err != nil {
			// Non-critical: skip failed sources.
			continue
		}
		all = append(all, items...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	f.mu.Lock()
	f.cache[key] = cacheEntry{items: all, expiresAt: time.Now().Add(f.ttl)}
	f.mu.Unlock()
	return all, nil
}

// CompanyHeadlines filters a market's headlines down to those mentioning the
// company name or symbol.
func (f *Feed) CompanyHeadlines(ctx context.Context, market models.MarketMode, terms []string, limit int) ([]models.NewsItem, error) {
	all, err := f.MarketHeadlines(ctx, market, 0)
	if err != nil {
		return nil, err
	}

	var filtered []models.NewsItem
	for _, item := range all {
		if matchesAny(item.Title+" "+item.Summary, terms) {
			filtered = append(filtered, item)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// fetchRSS parses one RSS feed into headline items.
func (f *Feed) fetchRSS(ctx context.Context, src Source) ([]models.NewsItem, error) {
	feed, err := f.parser.ParseURLWithContext(src.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		n := models.NewsItem{
			Title:   item.Title,
			Link:    item.Link,
			Source:  src.Name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			n.Published = *item.PublishedParsed
		}
		items = append(items, n)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// matchesAny checks if text contains any of the terms (case-insensitive).
func matchesAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
