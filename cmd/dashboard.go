package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/analytics"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print aggregated statistics of stored interviews",
	Run: func(cmd *cobra.Command, _ []string) {
		dashboard(cmd)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringP("user", "u", "local", "user id to aggregate")
}

// dashboard reads storage directly and needs no AI credentials.
func dashboard(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer store.Close()

	userID, _ := cmd.Flags().GetString("user")

	interviews, err := store.ListInterviews(ctx, userID)
	if err != nil {
		logger.Fatal("listing interviews", zap.Error(err))
	}

	// do not bother error since Stats is always marshalable
	pretty, _ := json.MarshalIndent(analytics.Compute(interviews), "", "  ")
	fmt.Println(string(pretty))
}
