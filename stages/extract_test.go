package stages

import (
	"context"
	"strings"
	"testing"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractPayload(html string) *pipeline.Payload {
	return &pipeline.Payload{Item: &types.ItemPayload{URL: "https://example.com/a", RawHTML: html}}
}

func TestExtractWorkerPullsArticleContent(t *testing.T) {
	worker := NewExtractWorker(testLogger())
	payload := extractPayload(articleHTML)

	out := worker.Execute(context.Background(), itemJob(1), payload)
	require.True(t, out.Advanced())
	assert.Equal(t, types.StatusSummarizing, out.Next())

	item := payload.Item
	assert.Equal(t, "Quantum Networking Advances", item.Title)
	assert.Equal(t, []string{"Dana Reyes"}, item.Authors)
	assert.Equal(t, "Tech Journal", item.Platform)
	assert.Contains(t, item.TextContent, "entanglement distribution")
	assert.Contains(t, item.TextContent, "quantum repeaters")
	assert.Empty(t, item.RawHTML, "raw HTML is released after extraction")
}

func TestExtractWorkerFallsBackToTitleTag(t *testing.T) {
	html := `<html><head><title>Plain Title</title></head><body><article>` +
		`<p>` + strings.Repeat("Body text that is long enough to pass the minimum length check. ", 3) + `</p>` +
		`</article></body></html>`

	worker := NewExtractWorker(testLogger())
	payload := extractPayload(html)

	out := worker.Execute(context.Background(), itemJob(1), payload)
	require.True(t, out.Advanced())
	assert.Equal(t, "Plain Title", payload.Item.Title)
}

func TestExtractWorkerKeepsExistingTitle(t *testing.T) {
	worker := NewExtractWorker(testLogger())
	payload := extractPayload(articleHTML)
	payload.Item.Title = "Feed Entry Title"

	out := worker.Execute(context.Background(), itemJob(1), payload)
	require.True(t, out.Advanced())
	assert.Equal(t, "Feed Entry Title", payload.Item.Title)
}

func TestExtractWorkerStripsChrome(t *testing.T) {
	html := `<html><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<script>trackPageView();</script>
<article><p>` + strings.Repeat("Meaningful article prose goes here and keeps going. ", 3) + `</p></article>
<footer>Copyright Tech Journal</footer>
</body></html>`

	worker := NewExtractWorker(testLogger())
	payload := extractPayload(html)

	out := worker.Execute(context.Background(), itemJob(1), payload)
	require.True(t, out.Advanced())
	assert.NotContains(t, payload.Item.TextContent, "trackPageView")
	assert.NotContains(t, payload.Item.TextContent, "Copyright")
	assert.NotContains(t, payload.Item.TextContent, "About")
}

func TestExtractWorkerTooLittleTextFails(t *testing.T) {
	worker := NewExtractWorker(testLogger())
	payload := extractPayload(`<html><body><article><p>Too short.</p></article></body></html>`)

	out := worker.Execute(context.Background(), itemJob(1), payload)
	assert.True(t, out.Failed())
	assert.True(t, pipeline.IsValidation(out.Err()))
}

func TestExtractWorkerMissingHTMLFails(t *testing.T) {
	worker := NewExtractWorker(testLogger())
	payload := extractPayload("")

	out := worker.Execute(context.Background(), itemJob(1), payload)
	assert.True(t, out.Failed())
}
