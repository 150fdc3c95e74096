package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "mock-interviewer"
)

type Config struct {
	Server  *ServerConfig  `mapstructure:"server"`
	Storage *StorageConfig `mapstructure:"storage"`
	AI      *AIConfig      `mapstructure:"ai"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	Speech        bool          `mapstructure:"speech"`
	SpeechTimeout time.Duration `mapstructure:"speech-timeout"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey             string  `mapstructure:"api-key"`
	APIKeyFile         string  `mapstructure:"api-key-file"`
	Model              string  `mapstructure:"model"`
	TranscriptionModel string  `mapstructure:"transcription-model"`
	SpeechModel        string  `mapstructure:"speech-model"`
	Voice              string  `mapstructure:"voice"`
	Temperature        float32 `mapstructure:"temperature"`
	MaxRetries         int     `mapstructure:"max-retries"`
	MaxLogLength       int     `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mock-interviewer runs AI mock interviews with per-answer feedback and progress tracking",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"storage.path":           "MOCK_INTERVIEWER_DB",
		"server.addr":            "MOCK_INTERVIEWER_ADDR",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.allowed-origins", []string{"*"})
	viper.SetDefault("server.shutdown-timeout", 10*time.Second)
	viper.SetDefault("storage.path", "data/interviews.db")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.speech", true)
	viper.SetDefault("ai.speech-timeout", 15*time.Second)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mock-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Variables from .env never override the real environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, everything has defaults or env vars.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
