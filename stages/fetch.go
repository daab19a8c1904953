// Package stages contains the stage workers that move item and podcast
// jobs through their pipelines. Each worker serves exactly one in-progress
// status and reports its verdict as an outcome, leaving all status writes
// to the scheduler.
package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	maxFetchBodySize  = 5 * 1024 * 1024
	defaultFetchLimit = 10 // requests per second across all fetch executions
	userAgent         = "briefing-backend/1.0"
)

// FetchWorker downloads the item's URL. Feed URLs are resolved to their
// most recent entry before the content is handed to extraction.
type FetchWorker struct {
	client     *http.Client
	limiter    *rate.Limiter
	feedParser *gofeed.Parser
	logger     *logrus.Logger
}

// NewFetchWorker builds a fetch worker with a shared outbound rate limit.
// A nil client falls back to a 30 second timeout default.
func NewFetchWorker(client *http.Client, requestsPerSecond float64, logger *logrus.Logger) *FetchWorker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultFetchLimit
	}
	return &FetchWorker{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)),
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

func (w *FetchWorker) Stage() types.JobStatus {
	return types.StatusFetching
}

func (w *FetchWorker) Execute(ctx context.Context, job types.Job, payload *pipeline.Payload) pipeline.Outcome {
	if payload == nil || payload.Item == nil {
		return pipeline.Fail(pipeline.Invalid(errors.New("fetch stage requires an item payload")))
	}
	item := payload.Item

	if err := w.limiter.Wait(ctx); err != nil {
		return pipeline.Retry(err)
	}

	body, contentType, err := w.download(ctx, item.URL)
	if err != nil {
		return classifyFetchError(err)
	}

	// A feed URL points at many articles, not one. Resolve it to the
	// newest entry and fetch that instead.
	if isFeedContent(contentType, body) {
		entryURL, entryTitle, err := w.resolveFeedEntry(item.URL, body)
		if err != nil {
			return pipeline.Fail(pipeline.Invalid(err))
		}
		w.logger.WithFields(logrus.Fields{
			"item_id":   job.EntityID,
			"feed_url":  item.URL,
			"entry_url": entryURL,
		}).Info("Resolved feed URL to latest entry")

		item.Platform = "feed"
		item.URL = entryURL
		if entryTitle != "" {
			item.Title = entryTitle
		}
		body, _, err = w.download(ctx, entryURL)
		if err != nil {
			return classifyFetchError(err)
		}
	}

	item.RawHTML = body
	return pipeline.Advance(types.StatusExtracting, "")
}

func (w *FetchWorker) download(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", pipeline.Invalid(fmt.Errorf("invalid URL %q: %w", url, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/rss+xml,application/atom+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", "", pipeline.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", "", pipeline.Transient(fmt.Errorf("upstream returned %d for %s", resp.StatusCode, url))
	}
	if resp.StatusCode >= 400 {
		return "", "", pipeline.Invalid(fmt.Errorf("upstream returned %d for %s", resp.StatusCode, url))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodySize))
	if err != nil {
		return "", "", pipeline.Transient(err)
	}
	return string(data), resp.Header.Get("Content-Type"), nil
}

func (w *FetchWorker) resolveFeedEntry(feedURL, body string) (string, string, error) {
	feed, err := w.feedParser.ParseString(body)
	if err != nil {
		return "", "", fmt.Errorf("unparseable feed at %s: %w", feedURL, err)
	}
	if len(feed.Items) == 0 {
		return "", "", fmt.Errorf("feed at %s has no entries", feedURL)
	}
	entry := feed.Items[0]
	if entry.Link == "" {
		return "", "", fmt.Errorf("feed entry in %s has no link", feedURL)
	}
	return entry.Link, entry.Title, nil
}

func classifyFetchError(err error) pipeline.Outcome {
	if pipeline.IsValidation(err) {
		return pipeline.Fail(err)
	}
	return pipeline.Retry(err)
}

func isFeedContent(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	head := strings.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
}
