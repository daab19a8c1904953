package stages

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
)

// Local stand-ins for the external model and speech services. They let the
// pipeline run end to end without credentials, both in tests and when the
// server starts with mock services enabled.

// MockAIService returns a truncated echo of the input as the summary
type MockAIService struct{}

func (m *MockAIService) SummarizeText(ctx context.Context, title, text string) (Summary, error) {
	const maxLen = 200
	summary := text
	if len(summary) > maxLen {
		summary = summary[:maxLen] + "..."
	}
	return Summary{
		Text: summary,
		Tags: []string{"mock"},
	}, nil
}

// MockScriptWriter composes a one-line script naming the covered items
type MockScriptWriter struct{}

func (m *MockScriptWriter) ComposeScript(ctx context.Context, title string, itemIDs []int64) (string, error) {
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("Welcome to %s. Today we cover items %s.", title, strings.Join(ids, ", ")), nil
}

// MemoryArchiver keeps finished artifacts in memory instead of Datastore
type MemoryArchiver struct {
	mu       sync.Mutex
	Items    map[int64]types.ItemPayload
	Podcasts map[int64]types.PodcastPayload
	owners   map[int64]int64
}

func NewMemoryArchiver() *MemoryArchiver {
	return &MemoryArchiver{
		Items:    make(map[int64]types.ItemPayload),
		Podcasts: make(map[int64]types.PodcastPayload),
		owners:   make(map[int64]int64),
	}
}

func (m *MemoryArchiver) ArchiveItem(ctx context.Context, job types.Job, item *types.ItemPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[job.EntityID] = *item
	m.owners[job.EntityID] = job.OwnerID
	return fmt.Sprintf("memory://items/%d", job.EntityID), nil
}

// GetArchivedItem serves archived item reads in mock mode
func (m *MemoryArchiver) GetArchivedItem(ctx context.Context, entityID int64) (*utils.ArchivedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.Items[entityID]
	if !ok {
		return nil, utils.ErrNotArchived
	}
	return &utils.ArchivedItem{
		EntityID:    entityID,
		OwnerID:     m.owners[entityID],
		URL:         item.URL,
		Title:       item.Title,
		TextContent: item.TextContent,
		Summary:     item.Summary,
		Tags:        item.Tags,
		Authors:     item.Authors,
		Platform:    item.Platform,
	}, nil
}

func (m *MemoryArchiver) ArchivePodcast(ctx context.Context, job types.Job, podcast *types.PodcastPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Podcasts[job.EntityID] = *podcast
	return nil
}

// MockSpeechSynthesizer returns a deterministic local audio URL
type MockSpeechSynthesizer struct{}

func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, title, script string) (string, error) {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
	if slug == "" {
		slug = "untitled"
	}
	return fmt.Sprintf("https://audio.local/podcasts/%s.mp3", slug), nil
}
