package stages

import (
	"context"
	"errors"
	"strings"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const minExtractedLength = 80

// ExtractWorker turns the fetched HTML into readable article text. It is a
// pure transformation of the payload: no network access, so every failure
// here is terminal rather than retryable.
type ExtractWorker struct {
	logger *logrus.Logger
}

func NewExtractWorker(logger *logrus.Logger) *ExtractWorker {
	return &ExtractWorker{logger: logger}
}

func (w *ExtractWorker) Stage() types.JobStatus {
	return types.StatusExtracting
}

func (w *ExtractWorker) Execute(ctx context.Context, job types.Job, payload *pipeline.Payload) pipeline.Outcome {
	if payload == nil || payload.Item == nil {
		return pipeline.Fail(pipeline.Invalid(errors.New("extract stage requires an item payload")))
	}
	item := payload.Item
	if item.RawHTML == "" {
		return pipeline.Fail(pipeline.Invalid(errors.New("extract stage reached without fetched content")))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.RawHTML))
	if err != nil {
		return pipeline.Fail(pipeline.Invalid(err))
	}

	if item.Title == "" {
		item.Title = extractTitle(doc)
	}
	if authors := extractAuthors(doc); len(authors) > 0 {
		item.Authors = authors
	}
	if item.Platform == "" {
		item.Platform = extractPlatform(doc)
	}

	text := extractText(doc)
	if len(text) < minExtractedLength {
		return pipeline.Fail(pipeline.Invalid(errors.New("page contains no extractable article text")))
	}

	item.TextContent = text
	item.RawHTML = ""

	w.logger.WithFields(logrus.Fields{
		"item_id":     job.EntityID,
		"title":       item.Title,
		"text_length": len(text),
	}).Info("Extracted article content")

	return pipeline.Advance(types.StatusSummarizing, "")
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractAuthors(doc *goquery.Document) []string {
	var authors []string
	seen := make(map[string]bool)
	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("content"); ok {
			name = strings.TrimSpace(name)
			if name != "" && !seen[name] {
				seen[name] = true
				authors = append(authors, name)
			}
		}
	})
	return authors
}

func extractPlatform(doc *goquery.Document) string {
	if site, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		return strings.TrimSpace(site)
	}
	return ""
}

func extractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, noscript, iframe").Remove()

	// Prefer semantic article containers, fall back to the whole body.
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var parts []string
	root.Find("p, h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(root.Text())
	}
	return strings.Join(parts, "\n\n")
}
