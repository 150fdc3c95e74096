package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	provider = "gemini"

	defaultModel              = "gemini-2.5-flash"
	defaultTranscriptionModel = "gemini-2.5-flash"
	defaultSpeechModel        = "gemini-2.5-flash-preview-tts"
	defaultVoice              = "Kore"
	defaultMaxRetries         = 3
	defaultMaxLogLength       = 200
)

// Config tunes the Gemini collaborators. Zero values fall back to defaults.
type Config struct {
	APIKey             string
	Model              string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	Temperature        float32
	MaxRetries         int
	MaxLogLength       int
}

func (c Config) withDefaults() Config {
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = defaultModel
	}
	if c.TranscriptionModel = strings.TrimSpace(c.TranscriptionModel); c.TranscriptionModel == "" {
		c.TranscriptionModel = defaultTranscriptionModel
	}
	if c.SpeechModel = strings.TrimSpace(c.SpeechModel); c.SpeechModel == "" {
		c.SpeechModel = defaultSpeechModel
	}
	if c.Voice = strings.TrimSpace(c.Voice); c.Voice == "" {
		c.Voice = defaultVoice
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaultMaxLogLength
	}
	return c
}

// Client bundles the Gemini-backed generator, transcriber and synthesizer
// sharing one API connection.
type Client struct {
	Generator   *Generator
	Transcriber *Transcriber
	Synthesizer *Synthesizer
}

// New connects to the Gemini API backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	cfg = cfg.withDefaults()

	return &Client{
		Generator:   NewGenerator(genaiChats{chats: client.Chats}, cfg, logger),
		Transcriber: NewTranscriber(client.Models, cfg, logger),
		Synthesizer: NewSynthesizer(client.Models, cfg, logger),
	}, nil
}

// genaiChats adapts *genai.Chats to chatCreator.
type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// responseText joins the text parts of the first candidates.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
