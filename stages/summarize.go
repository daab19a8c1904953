package stages

import (
	"context"
	"errors"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// Summary is the model output for one article
type Summary struct {
	Text string
	Tags []string
}

// AIService produces article summaries. Implementations wrap an external
// model API; failures there are usually transient and should be returned
// wrapped accordingly.
type AIService interface {
	SummarizeText(ctx context.Context, title, text string) (Summary, error)
}

// ItemArchiver persists a finished item and returns a stable reference to
// the stored record.
type ItemArchiver interface {
	ArchiveItem(ctx context.Context, job types.Job, item *types.ItemPayload) (string, error)
}

// SummarizeWorker runs the extracted text through the AI service, archives
// the finished item, and completes the job with the archive reference.
type SummarizeWorker struct {
	ai       AIService
	archiver ItemArchiver
	logger   *logrus.Logger
}

func NewSummarizeWorker(ai AIService, archiver ItemArchiver, logger *logrus.Logger) *SummarizeWorker {
	return &SummarizeWorker{ai: ai, archiver: archiver, logger: logger}
}

func (w *SummarizeWorker) Stage() types.JobStatus {
	return types.StatusSummarizing
}

func (w *SummarizeWorker) Execute(ctx context.Context, job types.Job, payload *pipeline.Payload) pipeline.Outcome {
	if payload == nil || payload.Item == nil {
		return pipeline.Fail(pipeline.Invalid(errors.New("summarize stage requires an item payload")))
	}
	item := payload.Item
	if item.TextContent == "" {
		return pipeline.Fail(pipeline.Invalid(errors.New("summarize stage reached without extracted text")))
	}

	summary, err := w.ai.SummarizeText(ctx, item.Title, item.TextContent)
	if err != nil {
		if pipeline.IsValidation(err) {
			return pipeline.Fail(err)
		}
		return pipeline.Retry(err)
	}
	if summary.Text == "" {
		return pipeline.Retry(errors.New("model returned an empty summary"))
	}

	item.Summary = summary.Text
	item.Tags = summary.Tags

	resultRef, err := w.archiver.ArchiveItem(ctx, job, item)
	if err != nil {
		return pipeline.Retry(err)
	}

	w.logger.WithFields(logrus.Fields{
		"item_id":    job.EntityID,
		"result_ref": resultRef,
		"tags":       len(summary.Tags),
	}).Info("Item summarized and archived")

	return pipeline.Advance(types.StatusCompleted, resultRef)
}
