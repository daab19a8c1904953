package stages

import (
	"context"
	"errors"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// ScriptWriter composes a spoken-word script covering the given items
type ScriptWriter interface {
	ComposeScript(ctx context.Context, title string, itemIDs []int64) (string, error)
}

// SpeechSynthesizer renders a script to audio and returns the audio URL
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, title, script string) (string, error)
}

// PodcastArchiver persists a finished podcast record
type PodcastArchiver interface {
	ArchivePodcast(ctx context.Context, job types.Job, podcast *types.PodcastPayload) error
}

// ScriptWorker serves the writing stage of the podcast pipeline
type ScriptWorker struct {
	writer ScriptWriter
	logger *logrus.Logger
}

func NewScriptWorker(writer ScriptWriter, logger *logrus.Logger) *ScriptWorker {
	return &ScriptWorker{writer: writer, logger: logger}
}

func (w *ScriptWorker) Stage() types.JobStatus {
	return types.StatusWriting
}

func (w *ScriptWorker) Execute(ctx context.Context, job types.Job, payload *pipeline.Payload) pipeline.Outcome {
	if payload == nil || payload.Podcast == nil {
		return pipeline.Fail(pipeline.Invalid(errors.New("writing stage requires a podcast payload")))
	}
	podcast := payload.Podcast
	if len(podcast.ItemIDs) == 0 {
		return pipeline.Fail(pipeline.Invalid(errors.New("podcast has no items to cover")))
	}

	script, err := w.writer.ComposeScript(ctx, podcast.Title, podcast.ItemIDs)
	if err != nil {
		if pipeline.IsValidation(err) {
			return pipeline.Fail(err)
		}
		return pipeline.Retry(err)
	}
	if script == "" {
		return pipeline.Retry(errors.New("script writer returned an empty script"))
	}

	podcast.Script = script
	w.logger.WithFields(logrus.Fields{
		"podcast_id":    job.EntityID,
		"script_length": len(script),
		"item_count":    len(podcast.ItemIDs),
	}).Info("Podcast script written")

	return pipeline.Advance(types.StatusGenerating, "")
}

// AudioWorker serves the generating stage of the podcast pipeline. It
// completes the job with the synthesized audio URL as the result reference.
type AudioWorker struct {
	synth    SpeechSynthesizer
	archiver PodcastArchiver
	logger   *logrus.Logger
}

func NewAudioWorker(synth SpeechSynthesizer, archiver PodcastArchiver, logger *logrus.Logger) *AudioWorker {
	return &AudioWorker{synth: synth, archiver: archiver, logger: logger}
}

func (w *AudioWorker) Stage() types.JobStatus {
	return types.StatusGenerating
}

func (w *AudioWorker) Execute(ctx context.Context, job types.Job, payload *pipeline.Payload) pipeline.Outcome {
	if payload == nil || payload.Podcast == nil {
		return pipeline.Fail(pipeline.Invalid(errors.New("generating stage requires a podcast payload")))
	}
	podcast := payload.Podcast
	if podcast.Script == "" {
		return pipeline.Fail(pipeline.Invalid(errors.New("generating stage reached without a script")))
	}

	audioURL, err := w.synth.Synthesize(ctx, podcast.Title, podcast.Script)
	if err != nil {
		if pipeline.IsValidation(err) {
			return pipeline.Fail(err)
		}
		return pipeline.Retry(err)
	}
	if audioURL == "" {
		return pipeline.Retry(errors.New("synthesizer returned no audio URL"))
	}

	podcast.AudioURL = audioURL
	if w.archiver != nil {
		if err := w.archiver.ArchivePodcast(ctx, job, podcast); err != nil {
			return pipeline.Retry(err)
		}
	}

	w.logger.WithFields(logrus.Fields{
		"podcast_id": job.EntityID,
		"audio_url":  audioURL,
	}).Info("Podcast audio generated")

	return pipeline.Advance(types.StatusCompleted, audioURL)
}
