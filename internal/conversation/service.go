// Package conversation runs mock interviews: it owns the turn log of every
// session, sequences the speech and language collaborators for each answer
// and commits a turn only when all of its mandatory parts succeeded.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/analytics"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/storage"
)

const defaultSpeechTimeout = 15 * time.Second

// Config wires the collaborators. Generator and Repository are required;
// without a Transcriber only text answers are accepted and without a
// Synthesizer replies carry no audio.
type Config struct {
	Generator     ai.Generator
	Transcriber   ai.Transcriber
	Synthesizer   ai.Synthesizer
	Repository    storage.Repository
	Logger        *zap.Logger
	SpeechTimeout time.Duration
}

// Service orchestrates interviews.
type Service struct {
	generator     ai.Generator
	transcriber   ai.Transcriber
	synthesizer   ai.Synthesizer
	repo          storage.Repository
	logger        *zap.Logger
	speechTimeout time.Duration

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*session
}

// Reply is an interviewer line with optional speech.
type Reply struct {
	Text  string
	Audio *ai.Audio
}

// Answer is one candidate answer. Text wins over Audio when both are set.
type Answer struct {
	Text     string
	Audio    []byte
	MIMEType string
	// ExpectedTurns, when set, must equal the number of turns the session
	// holds; otherwise the answer was given against a stale history.
	ExpectedTurns *int
}

// TurnResult is the outcome of a committed answer.
type TurnResult struct {
	Transcript   string
	NextQuestion string
	Audio        *ai.Audio
	Evaluation   evaluation.Record
	Turns        int
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}

	speechTimeout := cfg.SpeechTimeout
	if speechTimeout <= 0 {
		speechTimeout = defaultSpeechTimeout
	}

	return &Service{
		generator:     cfg.Generator,
		transcriber:   cfg.Transcriber,
		synthesizer:   cfg.Synthesizer,
		repo:          cfg.Repository,
		logger:        logger.WithFields(cfg.Logger),
		speechTimeout: speechTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		sessions:      map[string]*session{},
	}, nil
}

// Start creates an interview holding only its system turn.
func (s *Service) Start(ctx context.Context, userID, company, role, level string) (*interview.Interview, error) {
	userID, company, role, level = trim(userID), trim(company), trim(role), trim(level)
	if userID == "" {
		return nil, invalid("user id is required")
	}
	if company == "" || role == "" || level == "" {
		return nil, invalid("company, role and level are required")
	}

	iv := &interview.Interview{
		ID:        s.newID(),
		UserID:    userID,
		Company:   company,
		Role:      role,
		Level:     level,
		State:     interview.StateCreated,
		CreatedAt: s.now(),
		History: interview.History{}.Append(ai.Turn{
			Role:    ai.RoleSystem,
			Content: systemTurnText(company, role, level),
		}),
	}

	if err := s.repo.SaveInterview(ctx, iv); err != nil {
		return nil, wrap(ErrPersistence, err)
	}

	s.mu.Lock()
	s.sessions[iv.ID] = newSession(iv)
	s.mu.Unlock()

	logger.WithInterview(s.logger, userID, iv.ID).Info("interview started",
		zap.String("company", company),
		zap.String("role", role),
		zap.String("level", level),
	)

	return iv.Clone(), nil
}

// Intro produces a greeting without touching any session.
func (s *Service) Intro(ctx context.Context, company, role, level string) (*Reply, error) {
	company, role, level = trim(company), trim(role), trim(level)
	if company == "" || role == "" || level == "" {
		return nil, invalid("company, role and level are required")
	}

	vars := promptVars{Company: company, Role: role, Level: level}
	text, err := s.generator.Complete(ctx, buildPrompt(openingTemplate, vars), nil)
	if err != nil {
		return nil, wrap(ErrGeneration, err)
	}

	return &Reply{Text: text, Audio: s.speak(ctx, s.logger, text)}, nil
}

// Open records the greeting as the first assistant turn. Opening an interview
// that is already under way returns its latest question again.
//
// When only the final save fails, the reply is returned together with an
// error wrapping ErrPersistence; Persist retries the save.
func (s *Service) Open(ctx context.Context, userID, id string) (*Reply, error) {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.acquire() {
		return nil, fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	log := logger.WithInterview(s.logger, userID, id)
	snap := sess.snapshot()

	switch snap.State {
	case interview.StateEnded:
		return nil, ErrEnded
	case interview.StateCreated:
	default:
		text := snap.LastQuestion()
		return &Reply{Text: text, Audio: s.speak(ctx, log, text)}, nil
	}

	text, err := s.generator.Complete(ctx, buildPrompt(openingTemplate, varsOf(snap)), snap.History.Turns())
	if err != nil {
		log.Warn("opening turn failed", zap.Error(err))
		return nil, wrap(ErrGeneration, err)
	}

	committed := sess.commit(func(iv *interview.Interview) {
		iv.History = iv.History.Append(ai.Turn{Role: ai.RoleAssistant, Content: text})
		iv.State = interview.StateIntroduced
	})

	reply := &Reply{Text: text, Audio: s.speak(ctx, log, text)}

	if err := s.repo.SaveInterview(ctx, committed); err != nil {
		log.Error("saving opening turn", zap.Error(err))
		return reply, wrap(ErrPersistence, err)
	}
	sess.markSaved()

	log.Info("interview opened")
	return reply, nil
}

// Submit processes one answer: transcribe if needed, evaluate the answer on
// its own, ask for the next question with the full history, then commit the
// user turn, the evaluation and the assistant turn together. Any mandatory
// failure leaves the session exactly as it was.
//
// When only the final save fails, the result is returned together with an
// error wrapping ErrPersistence; Persist retries the save.
func (s *Service) Submit(ctx context.Context, userID, id string, answer Answer) (*TurnResult, error) {
	if trim(answer.Text) == "" && len(answer.Audio) == 0 {
		return nil, invalid("answer text or audio is required")
	}

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.acquire() {
		return nil, fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	log := logger.WithInterview(s.logger, userID, id)
	snap := sess.snapshot()

	if snap.State == interview.StateEnded {
		return nil, ErrEnded
	}
	if !snap.State.AcceptsAnswer() {
		return nil, fmt.Errorf("%w: interview is %s, not awaiting an answer", ErrConflict, snap.State)
	}
	if answer.ExpectedTurns != nil && *answer.ExpectedTurns != len(snap.History) {
		return nil, fmt.Errorf("%w: answer was given against %d turns, interview has %d",
			ErrConflict, *answer.ExpectedTurns, len(snap.History))
	}

	sess.setState(interview.StateAnswerReceived)
	committed := false
	defer func() {
		if !committed {
			sess.setState(snap.State)
		}
	}()

	transcript, err := s.transcript(ctx, answer)
	if err != nil {
		log.Warn("transcription failed", zap.Error(err))
		return nil, err
	}

	question := snap.LastQuestion()
	userTurn := ai.Turn{Role: ai.RoleUser, Content: transcript}
	history := snap.History.Append(userTurn)

	vars := varsOf(snap)
	vars.Question = question

	rawEvaluation, err := s.generator.Complete(ctx, buildPrompt(answerEvaluationTemplate, vars), []ai.Turn{userTurn})
	if err != nil {
		log.Warn("answer evaluation failed", zap.Error(err))
		return nil, wrap(ErrGeneration, err)
	}

	parsed := evaluation.Parse(rawEvaluation)
	s.logParse(log, parsed, rawEvaluation)
	record := parsed.Record(question, transcript)

	next, err := s.generator.Complete(ctx, buildPrompt(questionTemplate, vars), history.Turns())
	if err != nil {
		log.Warn("next question failed", zap.Error(err))
		return nil, wrap(ErrGeneration, err)
	}

	saved := sess.commit(func(iv *interview.Interview) {
		iv.History = iv.History.Append(userTurn, ai.Turn{Role: ai.RoleAssistant, Content: next})
		iv.Records = append(iv.Records, record)
		iv.State = interview.StateAwaitingAnswer
	})
	committed = true

	// Stored records keep only what was parsed; callers see every category.
	shown := record
	shown.Scores = record.Scores.Filled()

	result := &TurnResult{
		Transcript:   transcript,
		NextQuestion: next,
		Audio:        s.speak(ctx, log, next),
		Evaluation:   shown,
		Turns:        len(saved.History),
	}

	if err := s.repo.SaveInterview(ctx, saved); err != nil {
		log.Error("saving answered turn", zap.Error(err))
		return result, wrap(ErrPersistence, err)
	}
	sess.markSaved()

	log.Info("answer committed",
		zap.Int("turns", result.Turns),
		zap.Int("scored_categories", len(record.Scores)),
	)

	return result, nil
}

// End evaluates all answers together and closes the interview. Ending an
// interview that already carries an analysis returns it unchanged, saving it
// first if an earlier save failed.
func (s *Service) End(ctx context.Context, userID, id string) (*evaluation.Analysis, error) {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.acquire() {
		return nil, fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	log := logger.WithInterview(s.logger, userID, id)
	snap := sess.snapshot()

	if snap.State == interview.StateEnded && snap.Analysis != nil {
		if sess.unsaved() {
			if err := s.repo.SaveInterview(ctx, snap); err != nil {
				log.Error("saving ended interview", zap.Error(err))
				return filledAnalysis(snap.Analysis), wrap(ErrPersistence, err)
			}
			sess.markSaved()
			s.forget(id)
		}
		return filledAnalysis(snap.Analysis), nil
	}

	answers := snap.UserAnswers()
	if len(answers) == 0 {
		return nil, invalid("interview has no answers to evaluate")
	}

	raw, err := s.generator.Complete(ctx, buildPrompt(sessionEvaluationTemplate, varsOf(snap)), []ai.Turn{{
		Role:    ai.RoleUser,
		Content: sessionAnswers(answers),
	}})
	if err != nil {
		log.Warn("session evaluation failed", zap.Error(err))
		return nil, wrap(ErrGeneration, err)
	}

	parsed := evaluation.Parse(raw)
	s.logParse(log, parsed, raw)
	analysis := parsed.Analysis()

	ended := s.now()
	saved := sess.commit(func(iv *interview.Interview) {
		iv.State = interview.StateEnded
		iv.EndedAt = &ended
		iv.Analysis = &analysis
	})

	if err := s.repo.SaveInterview(ctx, saved); err != nil {
		log.Error("saving ended interview", zap.Error(err))
		return filledAnalysis(saved.Analysis), wrap(ErrPersistence, err)
	}
	sess.markSaved()

	s.forget(id)
	log.Info("interview ended", zap.Int("answers", len(answers)))

	return filledAnalysis(saved.Analysis), nil
}

func filledAnalysis(a *evaluation.Analysis) *evaluation.Analysis {
	out := *a
	out.Scores = a.Scores.Filled()
	return &out
}

// SaveEvaluation appends an externally produced evaluation to an interview.
func (s *Service) SaveEvaluation(ctx context.Context, userID, id, question, answer string, raw map[string]any) (*evaluation.Record, error) {
	question, answer = trim(question), trim(answer)
	if question == "" || answer == "" || len(raw) == 0 {
		return nil, invalid("question, answer and evaluation are required")
	}

	record, err := evaluation.FromMap(question, answer, raw)
	if err != nil {
		return nil, wrap(ErrValidation, err)
	}

	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.acquire() {
		return nil, fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	if sess.snapshot().State == interview.StateEnded {
		return nil, ErrEnded
	}

	saved := sess.commit(func(iv *interview.Interview) {
		iv.Records = append(iv.Records, record)
	})

	if err := s.repo.SaveInterview(ctx, saved); err != nil {
		return &record, wrap(ErrPersistence, err)
	}
	sess.markSaved()

	return &record, nil
}

// Suggest asks for a standalone coaching tip on an answer.
func (s *Service) Suggest(ctx context.Context, question, answer string) (string, error) {
	question, answer = trim(question), trim(answer)
	if question == "" || answer == "" {
		return "", invalid("question and answer are required")
	}

	text, err := s.generator.Complete(ctx, buildPrompt(suggestionTemplate, promptVars{Question: question}), []ai.Turn{{
		Role:    ai.RoleUser,
		Content: answer,
	}})
	if err != nil {
		return "", wrap(ErrGeneration, err)
	}

	return text, nil
}

// Persist saves the in-memory state of an interview again, e.g. after a
// save failed following a committed turn.
func (s *Service) Persist(ctx context.Context, userID, id string) error {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if !sess.acquire() {
		return fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	snap := sess.snapshot()
	if err := s.repo.SaveInterview(ctx, snap); err != nil {
		return wrap(ErrPersistence, err)
	}
	sess.markSaved()

	if snap.State == interview.StateEnded {
		s.forget(id)
	}

	return nil
}

// Get returns a snapshot of an interview.
func (s *Service) Get(ctx context.Context, userID, id string) (*interview.Interview, error) {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

// List returns the user's interviews, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*interview.Interview, error) {
	if trim(userID) == "" {
		return nil, invalid("user id is required")
	}

	interviews, err := s.repo.ListInterviews(ctx, userID)
	if err != nil {
		return nil, wrap(ErrPersistence, err)
	}

	for i, j := 0, len(interviews)-1; i < j; i, j = i+1, j-1 {
		interviews[i], interviews[j] = interviews[j], interviews[i]
	}

	return interviews, nil
}

// Delete removes an interview. A session busy with a turn cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if !sess.acquire() {
		return fmt.Errorf("%w: interview %s is busy", ErrConflict, id)
	}
	defer sess.release()

	if err := s.repo.DeleteInterview(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.forget(id)
			return ErrNotFound
		}
		return wrap(ErrPersistence, err)
	}

	s.forget(id)
	logger.WithInterview(s.logger, userID, id).Info("interview deleted")

	return nil
}

// Dashboard aggregates the user's whole history.
func (s *Service) Dashboard(ctx context.Context, userID string) (analytics.Stats, error) {
	if trim(userID) == "" {
		return analytics.Stats{}, invalid("user id is required")
	}

	interviews, err := s.repo.ListInterviews(ctx, userID)
	if err != nil {
		return analytics.Stats{}, wrap(ErrPersistence, err)
	}

	return analytics.Compute(interviews), nil
}

// load returns the live session for id, reading it from storage on a cache
// miss. Sessions of other users are reported as missing.
func (s *Service) load(ctx context.Context, userID, id string) (*session, error) {
	if trim(userID) == "" {
		return nil, invalid("user id is required")
	}
	if trim(id) == "" {
		return nil, invalid("interview id is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		iv, err := s.repo.GetInterview(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, wrap(ErrPersistence, err)
		}

		s.mu.Lock()
		if existing, found := s.sessions[id]; found {
			sess = existing
		} else {
			sess = newSession(iv)
			s.sessions[id] = sess
		}
		s.mu.Unlock()
	}

	if sess.owner() != userID {
		return nil, ErrNotFound
	}

	return sess, nil
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Service) transcript(ctx context.Context, answer Answer) (string, error) {
	if text := trim(answer.Text); text != "" {
		return text, nil
	}

	if s.transcriber == nil {
		return "", invalid("audio answers are not supported without a transcriber")
	}

	text, err := s.transcriber.Transcribe(ctx, answer.Audio, answer.MIMEType)
	if err != nil {
		return "", wrap(ErrTranscription, err)
	}
	if text = trim(text); text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscription)
	}

	return text, nil
}

// speak synthesizes text on a best-effort basis with its own deadline.
func (s *Service) speak(ctx context.Context, log *zap.Logger, text string) *ai.Audio {
	if s.synthesizer == nil || trim(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.speechTimeout)
	defer cancel()

	audio, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		log.Warn("speech synthesis failed, replying with text only", zap.Error(err))
		return nil
	}

	return audio
}

func (s *Service) logParse(log *zap.Logger, parsed *evaluation.Result, raw string) {
	if parsed.Empty() {
		log.Warn("evaluation text had no recognizable structure",
			zap.String("raw_preview", logger.TruncateForLog(raw, 200)),
		)
		return
	}

	for label := range parsed.Unrecognized {
		log.Debug("ignoring unknown evaluation category", zap.String("label", label))
	}
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
