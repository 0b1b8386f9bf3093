// Package crawler scrapes form listings from the California Courts self-help
// catalog. Search result pages list forms as <ul><li> entries holding the form
// code, title, effective date, and info/download links.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Form is one scraped catalog entry before embedding and storage.
type Form struct {
	Code          string
	Title         string
	Topic         string
	URL           string
	InfoURL       string
	DownloadURL   string
	EffectiveDate string
	Languages     []string
	Mandatory     bool
	RawText       string
}

var (
	formCodeRe  = regexp.MustCompile(`^[A-Z]{2,}-\d{3}[A-Z]?\b`)
	effectiveRe = regexp.MustCompile(`Effective:\s*([^\n]+)`)

	// Non-English variants the catalog lists inline with each form.
	languageMarkers = []string{"汉语", "한국어", "español", "Tiếng Việt"}
)

type Config struct {
	BaseURL  string
	MaxDepth int
	Logger   *zap.Logger
}

// Crawler fetches and parses catalog search pages. A fresh colly collector is
// created per fetch so concurrent topic crawls do not share visit state.
type Crawler struct {
	baseURL  string
	maxDepth int
	log      *zap.Logger
}

func New(cfg Config) *Crawler {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://selfhelp.courts.ca.gov"
	}
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = 2
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{baseURL: base, maxDepth: depth, log: log}
}

// SearchURL returns the catalog search page for a topic.
func (c *Crawler) SearchURL(topic string) string {
	return c.baseURL + "/find-forms?query=" + url.QueryEscape(topic)
}

// FetchTopic scrapes the search results page for one topic and returns the
// forms found on it.
func (c *Crawler) FetchTopic(ctx context.Context, topic string) ([]Form, error) {
	return c.fetch(ctx, c.SearchURL(topic), topic, 1)
}

// FetchIndex scrapes the unfiltered forms index. When deep is set the
// collector follows in-catalog links up to the configured depth.
func (c *Crawler) FetchIndex(ctx context.Context, deep bool) ([]Form, error) {
	depth := 1
	if deep {
		depth = c.maxDepth
	}
	return c.fetch(ctx, c.baseURL+"/find-forms", "", depth)
}

func (c *Crawler) fetch(ctx context.Context, pageURL, topic string, depth int) ([]Form, error) {
	var forms []Form

	collector := colly.NewCollector(
		colly.MaxDepth(depth),
		colly.AllowedDomains(hostOf(c.baseURL)),
		colly.StdlibContext(ctx),
	)

	collector.OnHTML("ul li", func(e *colly.HTMLElement) {
		form, ok := ParseFormItem(e.DOM, topic, e.Request.URL.String(), c.baseURL)
		if !ok {
			return
		}
		forms = append(forms, form)
	})

	if depth > 1 {
		collector.OnHTML("a[href*='find-forms']", func(e *colly.HTMLElement) {
			if err := e.Request.Visit(e.Attr("href")); err != nil {
				c.log.Debug("skipping link", zap.String("href", e.Attr("href")), zap.Error(err))
			}
		})
	}

	var fetchErr error
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	collector.Wait()

	if len(forms) == 0 && fetchErr != nil {
		return nil, fetchErr
	}
	return forms, nil
}

// ParseFormItem extracts one form from a listing element. The second return
// is false for list items that are not form entries.
func ParseFormItem(sel *goquery.Selection, topic, pageURL, baseURL string) (Form, bool) {
	raw := strings.TrimSpace(sel.Text())
	if raw == "" {
		return Form{}, false
	}

	lines := splitLines(raw)
	code := ""
	title := ""
	for i, line := range lines {
		if m := formCodeRe.FindString(line); m != "" {
			code = strings.Fields(line)[0]
			if i+1 < len(lines) {
				title = lines[i+1]
			}
			break
		}
	}
	if code == "" {
		return Form{}, false
	}

	form := Form{
		Code:    code,
		Title:   title,
		Topic:   topic,
		URL:     pageURL,
		RawText: raw,
	}

	if m := effectiveRe.FindStringSubmatch(raw); m != nil {
		form.EffectiveDate = strings.TrimSpace(m[1])
	}
	for _, lang := range languageMarkers {
		if strings.Contains(raw, lang) {
			form.Languages = append(form.Languages, lang)
		}
	}
	form.Mandatory = strings.Contains(raw, "*")

	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		full := absoluteURL(baseURL, href)
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		switch {
		case strings.Contains(text, "form info") || strings.Contains(text, "see form"):
			form.InfoURL = full
		case strings.Contains(text, "download") || strings.Contains(strings.ToLower(href), ".pdf"):
			form.DownloadURL = full
		}
	})

	return form, true
}

// Content renders the form into the text that gets embedded and stored. The
// layout keeps one labeled fact per block so the embedding captures the code,
// title, and topic together.
func (f Form) Content() string {
	mandatory := "No"
	if f.Mandatory {
		mandatory = "Yes"
	}
	parts := []string{
		"Topic: " + f.Topic,
		"Form Code: " + f.Code,
		"Form Title: " + f.Title,
		"Effective Date: " + f.EffectiveDate,
		"Languages Available: " + strings.Join(f.Languages, ", "),
		"Mandatory: " + mandatory,
	}
	if f.RawText != "" {
		parts = append(parts, "Form Details: "+f.RawText)
	}
	return strings.Join(parts, "\n\n")
}

// Metadata returns the auxiliary fields stored alongside the embedded content.
func (f Form) Metadata() map[string]any {
	content := f.Content()
	return map[string]any{
		"form_code":      f.Code,
		"form_title":     f.Title,
		"topic":          f.Topic,
		"form_info_url":  f.InfoURL,
		"download_url":   f.DownloadURL,
		"effective_date": f.EffectiveDate,
		"languages":      f.Languages,
		"mandatory":      f.Mandatory,
		"word_count":     len(strings.Fields(content)),
		"char_count":     len(content),
	}
}

func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
