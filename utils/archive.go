package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/Nexora-Open-Source/briefing-backend/monitoring"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// Datastore kinds for archived pipeline output
const (
	ItemEntityKind    = "BriefingItem"
	PodcastEntityKind = "BriefingPodcast"
)

// ErrNotArchived is returned when no archived record exists for an entity
var ErrNotArchived = errors.New("no archived record for entity")

// ArchivedItem is the Datastore entity for a completed item
type ArchivedItem struct {
	EntityID    int64     `datastore:"entity_id"`
	OwnerID     int64     `datastore:"owner_id"`
	URL         string    `datastore:"url,noindex"`
	Title       string    `datastore:"title"`
	TextContent string    `datastore:"text_content,noindex"`
	Summary     string    `datastore:"summary,noindex"`
	Tags        []string  `datastore:"tags"`
	Authors     []string  `datastore:"authors"`
	Platform    string    `datastore:"platform"`
	ArchivedAt  time.Time `datastore:"archived_at"`
}

// ArchivedPodcast is the Datastore entity for a completed podcast
type ArchivedPodcast struct {
	EntityID   int64     `datastore:"entity_id"`
	OwnerID    int64     `datastore:"owner_id"`
	Title      string    `datastore:"title"`
	ItemIDs    []int64   `datastore:"item_ids"`
	Script     string    `datastore:"script,noindex"`
	AudioURL   string    `datastore:"audio_url,noindex"`
	ArchivedAt time.Time `datastore:"archived_at"`
}

// ArtifactArchiver persists finished pipeline output to Google Cloud
// Datastore. The returned references are stable entity paths that survive
// server restarts, unlike the in-memory job records.
type ArtifactArchiver struct {
	client *datastore.Client
	logger *logrus.Logger
}

func NewArtifactArchiver(client *datastore.Client, logger *logrus.Logger) *ArtifactArchiver {
	return &ArtifactArchiver{client: client, logger: logger}
}

// ArchiveItem stores a completed item and returns its entity reference
func (a *ArtifactArchiver) ArchiveItem(ctx context.Context, job types.Job, item *types.ItemPayload) (string, error) {
	entity := &ArchivedItem{
		EntityID:    job.EntityID,
		OwnerID:     job.OwnerID,
		URL:         item.URL,
		Title:       item.Title,
		TextContent: item.TextContent,
		Summary:     item.Summary,
		Tags:        item.Tags,
		Authors:     item.Authors,
		Platform:    item.Platform,
		ArchivedAt:  time.Now(),
	}

	key := datastore.IDKey(ItemEntityKind, job.EntityID, nil)
	if _, err := a.client.Put(ctx, key, entity); err != nil {
		monitoring.RecordArchiveOperation(string(types.KindItem), "error")
		a.logger.WithFields(logrus.Fields{
			"item_id": job.EntityID,
			"error":   err.Error(),
		}).Error("Failed to archive item")
		return "", err
	}

	monitoring.RecordArchiveOperation(string(types.KindItem), "success")
	return fmt.Sprintf("datastore://%s/%d", ItemEntityKind, job.EntityID), nil
}

// ArchivePodcast stores a completed podcast record
func (a *ArtifactArchiver) ArchivePodcast(ctx context.Context, job types.Job, podcast *types.PodcastPayload) error {
	entity := &ArchivedPodcast{
		EntityID:   job.EntityID,
		OwnerID:    job.OwnerID,
		Title:      podcast.Title,
		ItemIDs:    podcast.ItemIDs,
		Script:     podcast.Script,
		AudioURL:   podcast.AudioURL,
		ArchivedAt: time.Now(),
	}

	key := datastore.IDKey(PodcastEntityKind, job.EntityID, nil)
	if _, err := a.client.Put(ctx, key, entity); err != nil {
		monitoring.RecordArchiveOperation(string(types.KindPodcast), "error")
		a.logger.WithFields(logrus.Fields{
			"podcast_id": job.EntityID,
			"error":      err.Error(),
		}).Error("Failed to archive podcast")
		return err
	}

	monitoring.RecordArchiveOperation(string(types.KindPodcast), "success")
	return nil
}

// GetArchivedItem loads an archived item by entity ID, returning
// ErrNotArchived when the item was never archived.
func (a *ArtifactArchiver) GetArchivedItem(ctx context.Context, entityID int64) (*ArchivedItem, error) {
	var entity ArchivedItem
	key := datastore.IDKey(ItemEntityKind, entityID, nil)
	if err := a.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ErrNotArchived
		}
		return nil, err
	}
	return &entity, nil
}
