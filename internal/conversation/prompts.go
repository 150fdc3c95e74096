package conversation

import (
	_ "embed"
	"strings"

	"github.com/spigell/mock-interviewer/internal/interview"
)

var (
	//go:embed prompts/opening.md
	openingTemplate string
	//go:embed prompts/question.md
	questionTemplate string
	//go:embed prompts/answer_evaluation.md
	answerEvaluationTemplate string
	//go:embed prompts/session_evaluation.md
	sessionEvaluationTemplate string
	//go:embed prompts/suggestion.md
	suggestionTemplate string
)

// answerSeparator joins answers for the session-level evaluation.
const answerSeparator = "\n\n---\n\n"

type promptVars struct {
	Company  string
	Role     string
	Level    string
	Question string
}

func varsOf(iv *interview.Interview) promptVars {
	return promptVars{Company: iv.Company, Role: iv.Role, Level: iv.Level}
}

func buildPrompt(template string, v promptVars) string {
	question := v.Question
	if question == "" {
		question = "(no question was recorded)"
	}

	return strings.NewReplacer(
		"{{COMPANY}}", v.Company,
		"{{ROLE}}", v.Role,
		"{{LEVEL}}", v.Level,
		"{{QUESTION}}", question,
	).Replace(template)
}

// systemTurnText opens every interview history.
func systemTurnText(company, role, level string) string {
	return "This is a mock interview for a " + role + " position at " + company + ", level: " + level + "."
}

func sessionAnswers(answers []string) string {
	return "Candidate responses:\n\n" + strings.Join(answers, answerSeparator)
}
