package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/logger"
)

const transcribeInstruction = "Transcribe the candidate's spoken answer verbatim in English. " +
	"Return only the transcript text without timestamps, speaker labels or commentary."

const defaultAudioMIMEType = "audio/webm"

// Transcriber converts recorded answers into text with a multimodal model.
type Transcriber struct {
	models     contentGenerator
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

func NewTranscriber(models contentGenerator, cfg Config, log *zap.Logger) *Transcriber {
	cfg = cfg.withDefaults()

	return &Transcriber{
		models:     models,
		model:      cfg.TranscriptionModel,
		maxRetries: cfg.MaxRetries,
		maxLogLen:  cfg.MaxLogLength,
		logger:     logger.WithCommonFields(log, provider, cfg.TranscriptionModel),
	}
}

// Transcribe implements ai.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if t == nil || t.models == nil {
		return "", errors.New("gemini transcriber is not initialized")
	}
	if len(audio) == 0 {
		return "", errors.New("audio must not be empty")
	}
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = defaultAudioMIMEType
	}

	contents := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText(transcribeInstruction),
		},
	}}

	t.logger.Debug("gemini transcription request",
		zap.Int("audio_bytes", len(audio)),
		zap.String("mime_type", mimeType),
	)

	var transcript string
	err := withRetries(ctx, t.logger, t.maxRetries, func() error {
		resp, err := t.models.GenerateContent(ctx, t.model, contents, nil)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		transcript = responseText(resp)
		if transcript == "" {
			return errors.New("gemini api returned empty transcript")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	t.logger.Debug("gemini transcription response",
		zap.Int("transcript_length", utf8.RuneCountInString(transcript)),
		zap.String("transcript_preview", logger.TruncateForLog(transcript, t.maxLogLen)),
	)

	return transcript, nil
}
