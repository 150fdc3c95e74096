package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
)

// kickoff is sent when the conversation has no pending user message, e.g.
// when asking for the opening line.
const kickoff = "Please begin."

// Generator answers through a Gemini chat seeded with the conversation.
type Generator struct {
	chats       chatCreator
	model       string
	temperature float32
	maxRetries  int
	maxLogLen   int
	logger      *zap.Logger
}

// NewGenerator builds a Generator on top of a chat creator.
func NewGenerator(chats chatCreator, cfg Config, log *zap.Logger) *Generator {
	cfg = cfg.withDefaults()

	return &Generator{
		chats:       chats,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		maxLogLen:   cfg.MaxLogLength,
		logger:      logger.WithCommonFields(log, provider, cfg.Model),
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Complete implements ai.Generator. System turns are folded into the
// instruction; a trailing user turn becomes the message sent to the chat.
func (g *Generator) Complete(ctx context.Context, instruction string, history []ai.Turn) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	system, contents := splitHistory(instruction, history)
	if system == "" {
		return "", errors.New("instruction must not be empty")
	}

	message := kickoff
	if n := len(contents); n > 0 && contents[n-1].Role == string(genai.RoleUser) {
		message = contentText(contents[n-1])
		contents = contents[:n-1]
	}

	return g.send(ctx, system, contents, message)
}

// GenerateContent sends a single message with a system instruction.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	system = strings.TrimSpace(system)
	if system == "" {
		return "", errors.New("instruction must not be empty")
	}

	return g.send(ctx, system, nil, message)
}

func (g *Generator) send(ctx context.Context, system string, history []*genai.Content, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if g.temperature > 0 {
		config.Temperature = genai.Ptr(g.temperature)
	}

	g.logger.Debug("gemini chat request",
		zap.Int("history_length", len(history)),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("instruction_preview", logger.TruncateForLog(system, g.maxLogLen)),
		zap.String("message_preview", logger.TruncateForLog(message, g.maxLogLen)),
	)

	var output string
	err := withRetries(ctx, g.logger, g.maxRetries, func() error {
		chat, err := g.chats.Create(ctx, g.model, config, history)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}

		resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}

		output = responseText(resp)
		if output == "" {
			return errors.New("gemini api returned empty response")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini chat response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func splitHistory(instruction string, history []ai.Turn) (string, []*genai.Content) {
	system := []string{}
	if s := strings.TrimSpace(instruction); s != "" {
		system = append(system, s)
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}
		switch turn.Role {
		case ai.RoleSystem:
			system = append(system, text)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}

func contentText(c *genai.Content) string {
	var parts []string
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
