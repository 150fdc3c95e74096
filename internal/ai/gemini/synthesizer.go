package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
)

const defaultSampleRate = 24000

// Synthesizer voices interviewer lines with a Gemini speech model.
type Synthesizer struct {
	models     contentGenerator
	model      string
	voice      string
	maxRetries int
	logger     *zap.Logger
}

func NewSynthesizer(models contentGenerator, cfg Config, log *zap.Logger) *Synthesizer {
	cfg = cfg.withDefaults()

	return &Synthesizer{
		models:     models,
		model:      cfg.SpeechModel,
		voice:      cfg.Voice,
		maxRetries: cfg.MaxRetries,
		logger:     logger.WithCommonFields(log, provider, cfg.SpeechModel),
	}
}

// Synthesize implements ai.Synthesizer. Raw PCM output is wrapped into WAV
// so browsers can play it directly.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*ai.Audio, error) {
	if s == nil || s.models == nil {
		return nil, errors.New("gemini synthesizer is not initialized")
	}
	if text = strings.TrimSpace(text); text == "" {
		return nil, errors.New("text must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}

	var audio *ai.Audio
	err := withRetries(ctx, s.logger, s.maxRetries, func() error {
		resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(text), config)
		if err != nil {
			return fmt.Errorf("generate speech: %w", err)
		}
		audio = inlineAudio(resp)
		if audio == nil {
			return errors.New("gemini api returned no audio")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if isPCM(audio.MIMEType) {
		audio = &ai.Audio{
			Data:     wrapWAV(audio.Data, sampleRate(audio.MIMEType)),
			MIMEType: "audio/wav",
		}
	}

	s.logger.Debug("gemini speech response",
		zap.Int("audio_bytes", len(audio.Data)),
		zap.String("mime_type", audio.MIMEType),
		zap.String("voice", s.voice),
	)

	return audio, nil
}

func inlineAudio(resp *genai.GenerateContentResponse) *ai.Audio {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			return &ai.Audio{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
		}
	}
	return nil
}

func isPCM(mimeType string) bool {
	lower := strings.ToLower(mimeType)
	return strings.HasPrefix(lower, "audio/l16") || strings.Contains(lower, "codec=pcm")
}

// sampleRate reads the "rate=" parameter of a PCM mime type.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSampleRate
}

// wrapWAV prepends a RIFF header for 16-bit mono little-endian PCM.
func wrapWAV(pcm []byte, rate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := rate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
