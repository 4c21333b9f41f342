package scraper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var errNoDocument = errors.New("response did not contain an HTML document")

type CrawlerConfig struct {
	SearchURL      string
	PageDelay      time.Duration
	RequestTimeout time.Duration
	UserAgent      string
	Selectors      Selectors
}

// PageCrawler walks the paginated search results of one query.
type PageCrawler struct {
	searchURL *url.URL
	collector *colly.Collector
	selectors Selectors
}

func NewPageCrawler(cfg CrawlerConfig) (*PageCrawler, error) {
	searchURL, err := url.Parse(cfg.SearchURL)
	if err != nil || searchURL.Host == "" {
		return nil, fmt.Errorf("invalid search URL %q", cfg.SearchURL)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)

	if cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(cfg.RequestTimeout)
	}

	// Clones share the backend, so this delay also spaces detail page fetches.
	if cfg.PageDelay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.PageDelay,
		}); err != nil {
			return nil, fmt.Errorf("failed to set rate limit: %w", err)
		}
	}

	return &PageCrawler{
		searchURL: searchURL,
		collector: c,
		selectors: cfg.Selectors.Merge(DefaultSelectors()),
	}, nil
}

// PageURL returns the URL of result page n. Page 1 is the search URL as is.
func PageURL(base *url.URL, n int) string {
	if n <= 1 {
		return base.String()
	}

	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// Cards yields listing cards page by page in document order. The page bound
// comes from the pagination control on page 1; without one the results are
// treated as a single page. Crawling also stops at the first page without
// cards. Any fetch error is yielded once and ends the sequence.
func (s *PageCrawler) Cards(ctx context.Context) iter.Seq2[Card, error] {
	return func(yield func(Card, error) bool) {
		maxPage := 1

		for page := 1; page <= maxPage; page++ {
			if err := ctx.Err(); err != nil {
				yield(Card{}, err)
				return
			}

			doc, pageURL, err := s.fetch(PageURL(s.searchURL, page))
			if err != nil {
				yield(Card{}, fmt.Errorf("failed to fetch page %d: %w", page, err))
				return
			}

			if page == 1 {
				maxPage = s.lastPage(doc)
				log.Printf("Search has %d page(s)", maxPage)
			}

			cards := doc.Find(s.selectors.Card)
			log.Printf("Page %d/%d: %d cards", page, maxPage, cards.Length())
			if cards.Length() == 0 {
				return
			}

			for i := range cards.Length() {
				card := Card{Page: page, PageURL: pageURL, Sel: cards.Eq(i)}
				if !yield(card, nil) {
					return
				}
			}
		}
	}
}

func (s *PageCrawler) lastPage(doc *goquery.Selection) int {
	last := 0
	doc.Find(s.selectors.Pagination).Each(func(_ int, li *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(li.Text()))
		if err == nil && n > last {
			last = n
		}
	})

	if last < 1 {
		return 1
	}
	return last
}

// fetch loads one page and returns its root selection. Transport errors and
// non-2xx responses are returned as errors by colly.
func (s *PageCrawler) fetch(pageURL string) (*goquery.Selection, *url.URL, error) {
	c := s.collector.Clone()

	var (
		doc      *goquery.Selection
		finalURL *url.URL
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		if doc == nil {
			doc = e.DOM
			finalURL = e.Request.URL
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, errNoDocument
	}

	return doc, finalURL, nil
}
