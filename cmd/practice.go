package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/conversation"
	"github.com/spigell/mock-interviewer/internal/evaluation"
)

const (
	PromptAnswer     = "Answer the question"
	PromptSuggestion = "Get a hint for my answer"
	PromptEnd        = "End the interview"
	PromptQuit       = "Quit without ending"
)

var errExit = errors.New("exit requested")

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a mock interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("user", "u", "local", "user id the interview is stored under")
	practiceCmd.Flags().String("company", "", "target company")
	practiceCmd.Flags().String("role", "", "target role")
	practiceCmd.Flags().String("level", "", "target level")
}

func practice(cmd *cobra.Command) {
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

	svc, err := newService(ctx, config, store, false, logger)
	if err != nil {
		logger.Fatal("building interview service", zap.Error(err))
	}

	userID, _ := cmd.Flags().GetString("user")

	company, err := askFlagOrPrompt(cmd, "company", "Company")
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
	role, err := askFlagOrPrompt(cmd, "role", "Role")
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
	level, err := askFlagOrPrompt(cmd, "level", "Level")
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	iv, err := svc.Start(ctx, userID, company, role, level)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	greeting, err := svc.Open(ctx, userID, iv.ID)
	if err != nil {
		logger.Fatal("opening the interview", zap.Error(err))
	}

	logger.Info("interview started", zap.String("interview_id", iv.ID))
	fmt.Printf("\n%s\n\n", greeting.Text)

	question := greeting.Text
	menu := promptui.Select{
		Label: "What next?",
		Items: []string{PromptAnswer, PromptSuggestion, PromptEnd, PromptQuit},
	}

	for {
		_, action, err := menu.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		next, err := handlePracticeAction(ctx, svc, action, userID, iv.ID, question)
		if errors.Is(err, errExit) {
			return
		}
		if next != "" {
			question = next
		}
		if err != nil {
			logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func handlePracticeAction(ctx context.Context, svc *conversation.Service, action, userID, id, question string) (string, error) {
	switch action {
	case PromptAnswer:
		answer, err := askAnswer()
		if err != nil {
			return "", err
		}

		res, err := svc.Submit(ctx, userID, id, conversation.Answer{Text: answer})
		if err != nil && (res == nil || !errors.Is(err, conversation.ErrPersistence)) {
			return "", err
		}

		printRecord(res.Evaluation)
		fmt.Printf("\n%s\n\n", res.NextQuestion)
		return res.NextQuestion, err
	case PromptSuggestion:
		answer, err := askAnswer()
		if err != nil {
			return "", err
		}

		tip, err := svc.Suggest(ctx, question, answer)
		if err != nil {
			return "", err
		}

		fmt.Printf("\nHint: %s\n\n", tip)
		return "", nil
	case PromptEnd:
		analysis, err := svc.End(ctx, userID, id)
		if err != nil && (analysis == nil || !errors.Is(err, conversation.ErrPersistence)) {
			return "", err
		}
		if err != nil {
			fmt.Printf("\nThe analysis was not saved: %s\n", err)
		}

		fmt.Println("\nOverall evaluation")
		printScores(analysis.Scores)
		if analysis.OverallFeedbackSummary != "" {
			fmt.Printf("\n%s\n", analysis.OverallFeedbackSummary)
		}
		return "", errExit
	case PromptQuit:
		return "", errExit
	default:
		return "", fmt.Errorf("invalid action: %s", action)
	}
}

func askFlagOrPrompt(cmd *cobra.Command, flag, label string) (string, error) {
	if value, _ := cmd.Flags().GetString(flag); strings.TrimSpace(value) != "" {
		return value, nil
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}

	return prompt.Run()
}

func askAnswer() (string, error) {
	prompt := promptui.Prompt{
		Label: "Your answer",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	return prompt.Run()
}

func printRecord(rec evaluation.Record) {
	fmt.Println("\nFeedback")
	printScores(rec.Scores)

	if rec.OverallFeedback != "" {
		fmt.Printf("\n%s\n", rec.OverallFeedback)
	}
	if rec.Rating != "" {
		fmt.Printf("Rating: %s\n", rec.Rating)
	}
}

func printScores(scores evaluation.Scores) {
	filled := scores.Filled()
	for _, category := range evaluation.Categories {
		score := filled[category]
		fmt.Printf("  %-22s %s  %s\n", category+":", score.Score, score.Explanation)
	}
}
