package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/analytics"
	"github.com/spigell/mock-interviewer/internal/conversation"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/logger"
)

const (
	maxJSONBody  = 1 << 20
	maxAudioBody = 25 << 20
)

// Interviews is the set of operations the HTTP surface serves.
type Interviews interface {
	Start(ctx context.Context, userID, company, role, level string) (*interview.Interview, error)
	Intro(ctx context.Context, company, role, level string) (*conversation.Reply, error)
	Open(ctx context.Context, userID, id string) (*conversation.Reply, error)
	Submit(ctx context.Context, userID, id string, answer conversation.Answer) (*conversation.TurnResult, error)
	End(ctx context.Context, userID, id string) (*evaluation.Analysis, error)
	SaveEvaluation(ctx context.Context, userID, id, question, answer string, raw map[string]any) (*evaluation.Record, error)
	Suggest(ctx context.Context, question, answer string) (string, error)
	Persist(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*interview.Interview, error)
	List(ctx context.Context, userID string) ([]*interview.Interview, error)
	Delete(ctx context.Context, userID, id string) error
	Dashboard(ctx context.Context, userID string) (analytics.Stats, error)
}

// Handler serves the interview endpoints.
type Handler struct {
	svc    Interviews
	logger *zap.Logger
}

func NewHandler(svc Interviews, log *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.WithFields(log)}
}

// NewRouter builds the full HTTP surface.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(allowedOrigins))
	r.Use(Identity)

	h.RegisterRoutes(r)

	return r
}

// RegisterRoutes registers interview routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/interview/intro", h.Intro)
		r.Post("/suggestions", h.Suggest)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Get("/dashboard", h.Dashboard)
			r.Get("/interviews", h.List)
			r.Post("/interviews", h.Start)

			r.Route("/interviews/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Delete)
				r.Post("/intro", h.Open)
				r.Post("/answers", h.Submit)
				r.Post("/end", h.End)
				r.Post("/evaluations", h.SaveEvaluation)
				r.Post("/persist", h.Persist)
			})
		})
	})
}

type setupRequest struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Level   string `json:"level"`
}

type replyResponse struct {
	Text  string    `json:"text"`
	Audio *ai.Audio `json:"audio,omitempty"`
	// Persisted is false when the reply was recorded in memory but the save
	// failed; POST /persist retries it.
	Persisted bool `json:"persisted"`
}

type answerRequest struct {
	Text          string `json:"text"`
	Audio         []byte `json:"audio"`
	MIMEType      string `json:"mimeType"`
	ExpectedTurns *int   `json:"expectedTurns"`
}

type turnResponse struct {
	Transcript   string            `json:"transcript"`
	NextQuestion string            `json:"nextQuestion"`
	Audio        *ai.Audio         `json:"audio,omitempty"`
	Evaluation   evaluation.Record `json:"evaluation"`
	Turns        int               `json:"turns"`
	Persisted    bool              `json:"persisted"`
}

type analysisResponse struct {
	evaluation.Analysis
	Persisted bool `json:"persisted"`
}

type recordResponse struct {
	evaluation.Record
	Persisted bool `json:"persisted"`
}

type evaluationRequest struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Evaluation map[string]any `json:"evaluation"`
}

type suggestionRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Start creates an interview for the caller.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	iv, err := h.svc.Start(r.Context(), UserIDFromContext(r.Context()), req.Company, req.Role, req.Level)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, iv)
}

// Intro returns a greeting without creating an interview.
func (h *Handler) Intro(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.Intro(r.Context(), req.Company, req.Role, req.Level)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, replyResponse{Text: reply.Text, Audio: reply.Audio, Persisted: true})
}

// Open records the greeting of an interview.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	reply, err := h.svc.Open(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil && !(reply != nil && errors.Is(err, conversation.ErrPersistence)) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("greeting recorded but not saved", zap.Error(err))
	}

	JSON(w, http.StatusOK, replyResponse{Text: reply.Text, Audio: reply.Audio, Persisted: err == nil})
}

// Submit accepts a JSON body or a multipart form with an "audio" file.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	answer, err := readAnswer(w, r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Submit(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"), answer)
	if err != nil && !(res != nil && errors.Is(err, conversation.ErrPersistence)) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("answer committed but not saved", zap.Error(err))
	}

	JSON(w, http.StatusOK, turnResponse{
		Transcript:   res.Transcript,
		NextQuestion: res.NextQuestion,
		Audio:        res.Audio,
		Evaluation:   res.Evaluation,
		Turns:        res.Turns,
		Persisted:    err == nil,
	})
}

// End closes an interview and returns its overall analysis.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.svc.End(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil && !(analysis != nil && errors.Is(err, conversation.ErrPersistence)) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("analysis recorded but not saved", zap.Error(err))
	}

	JSON(w, http.StatusOK, analysisResponse{Analysis: *analysis, Persisted: err == nil})
}

// SaveEvaluation stores a client-supplied evaluation.
func (h *Handler) SaveEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.svc.SaveEvaluation(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Question, req.Answer, req.Evaluation)
	if err != nil && !(rec != nil && errors.Is(err, conversation.ErrPersistence)) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("evaluation recorded but not saved", zap.Error(err))
	}

	JSON(w, http.StatusCreated, recordResponse{Record: *rec, Persisted: err == nil})
}

// Persist retries saving an interview.
func (h *Handler) Persist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Persist(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Get returns one interview of the caller.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	iv, err := h.svc.Get(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, iv)
}

// List returns the caller's interviews, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*interview.Interview{}
	}

	JSON(w, http.StatusOK, list)
}

// Delete removes an interview of the caller.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns the caller's aggregated statistics.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, stats)
}

// Suggest returns a coaching tip for an answer.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tip, err := h.svc.Suggest(r.Context(), req.Question, req.Answer)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"suggestion": tip})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	Error(w, status, err.Error())
}

func readAnswer(w http.ResponseWriter, r *http.Request) (conversation.Answer, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// base64 audio rides in the JSON body
		var req answerRequest
		if err := decodeJSONWithin(w, r, maxAudioBody, &req); err != nil {
			return conversation.Answer{}, errors.New("invalid request body")
		}
		return conversation.Answer{
			Text:          req.Text,
			Audio:         req.Audio,
			MIMEType:      req.MIMEType,
			ExpectedTurns: req.ExpectedTurns,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)
	if err := r.ParseMultipartForm(maxAudioBody); err != nil {
		return conversation.Answer{}, errors.New("invalid multipart form")
	}

	answer := conversation.Answer{Text: r.FormValue("text")}

	if raw := r.FormValue("expectedTurns"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return conversation.Answer{}, errors.New("expectedTurns must be a number")
		}
		answer.ExpectedTurns = &n
	}

	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return answer, nil
	}
	if err != nil {
		return conversation.Answer{}, errors.New("invalid audio upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return conversation.Answer{}, errors.New("invalid audio upload")
	}

	answer.Audio = data
	answer.MIMEType = header.Header.Get("Content-Type")

	return answer, nil
}
