package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/ai/gemini"
	"github.com/spigell/mock-interviewer/internal/conversation"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/secrets"
	"github.com/spigell/mock-interviewer/internal/storage"
)

func newLogger() (*zap.Logger, error) {
	return logger.New(app, viper.GetBool("json"), viper.GetBool("debug"))
}

func openStore(ctx context.Context, config *Config, log *zap.Logger) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLite(config.Storage.Path, log)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}

	log.Info("database connected", zap.String("path", config.Storage.Path))
	return store, nil
}

// newGemini resolves the API key and connects the Gemini collaborators.
func newGemini(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Client, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	return gemini.New(ctx, gemini.Config{
		APIKey:             apiKey,
		Model:              cfg.Gemini.Model,
		TranscriptionModel: cfg.Gemini.TranscriptionModel,
		SpeechModel:        cfg.Gemini.SpeechModel,
		Voice:              cfg.Gemini.Voice,
		Temperature:        cfg.Gemini.Temperature,
		MaxRetries:         cfg.Gemini.MaxRetries,
		MaxLogLength:       cfg.Gemini.MaxLogLength,
	}, log)
}

// newService wires the interview service. speech enables voiced replies
// when the configuration allows it.
func newService(ctx context.Context, config *Config, repo storage.Repository, speech bool, log *zap.Logger) (*conversation.Service, error) {
	client, err := newGemini(ctx, config.AI, log)
	if err != nil {
		return nil, err
	}

	var synthesizer ai.Synthesizer
	if speech && config.AI.Speech {
		synthesizer = client.Synthesizer
	}

	return conversation.NewService(conversation.Config{
		Generator:     client.Generator,
		Transcriber:   client.Transcriber,
		Synthesizer:   synthesizer,
		Repository:    repo,
		Logger:        log,
		SpeechTimeout: config.AI.SpeechTimeout,
	})
}
