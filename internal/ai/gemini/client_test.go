package gemini

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
	chat    *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, history: history, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	originalWait := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = originalWait })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("retry ok"), nil)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
	}

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 2,
		logger:     zap.NewNop(),
	}

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: 3,
		logger:     zap.NewNop(),
	}

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := NewGenerator(chats, Config{Model: "gemini-pro", MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestRetryWaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	started := time.Now()
	err := withRetries(ctx, zap.NewNop(), 3, func() error {
		calls++
		cancel()
		return genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if elapsed := time.Since(started); elapsed >= baseBackoff {
		t.Fatalf("expected the backoff to be cut short, waited %v", elapsed)
	}
}

func TestGeneratorCompleteSplitsHistory(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("How would you validate it?"), nil)

	g := NewGenerator(chats, Config{Model: "gemini-pro"}, zap.NewNop())

	history := []ai.Turn{
		{Role: ai.RoleSystem, Content: "This is a mock interview."},
		{Role: ai.RoleAssistant, Content: "Tell me about a model you built."},
		{Role: ai.RoleUser, Content: "I used pandas and sklearn"},
	}

	out, err := g.Complete(context.Background(), "Ask one question.", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "How would you validate it?" {
		t.Fatalf("unexpected output: %q", out)
	}

	call := chats.calls[0]
	if got := call.config.SystemInstruction.Parts[0].Text; got != "Ask one question.\n\nThis is a mock interview." {
		t.Fatalf("unexpected system instruction: %q", got)
	}
	if len(call.history) != 1 || call.history[0].Role != string(genai.RoleModel) {
		t.Fatalf("expected the assistant turn as model history, got %+v", call.history)
	}
	if len(call.chat.messages) != 1 || call.chat.messages[0] != "I used pandas and sklearn" {
		t.Fatalf("expected last user turn to be sent, got %+v", call.chat.messages)
	}
}

func TestGeneratorCompleteKicksOffWithoutUserTurn(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("Hi, how are you?"), nil)

	g := NewGenerator(chats, Config{Model: "gemini-pro"}, zap.NewNop())

	if _, err := g.Complete(context.Background(), "Greet the candidate.", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msgs := chats.calls[0].chat.messages; len(msgs) != 1 || msgs[0] != kickoff {
		t.Fatalf("expected kickoff message, got %+v", msgs)
	}
}

type fakeModels struct {
	mu       sync.Mutex
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, contents)
	f.configs = append(f.configs, config)
	return f.resp, f.err
}

func TestTranscriberSendsAudioPart(t *testing.T) {
	models := &fakeModels{resp: textResponse("I used pandas and sklearn")}
	tr := NewTranscriber(models, Config{}, zap.NewNop())

	out, err := tr.Transcribe(context.Background(), []byte{1, 2, 3}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "I used pandas and sklearn" {
		t.Fatalf("unexpected transcript: %q", out)
	}

	parts := models.contents[0][0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != defaultAudioMIMEType {
		t.Fatalf("expected inline audio with default mime type, got %+v", parts[0])
	}
}

func TestTranscriberRejectsEmptyAudio(t *testing.T) {
	tr := NewTranscriber(&fakeModels{}, Config{}, zap.NewNop())
	if _, err := tr.Transcribe(context.Background(), nil, "audio/wav"); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestSynthesizerWrapsPCM(t *testing.T) {
	pcm := []byte{0, 1, 2, 3}
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: pcm, MIMEType: "audio/L16;codec=pcm;rate=16000"},
			}}},
		}},
	}}

	s := NewSynthesizer(models, Config{Voice: "Puck"}, zap.NewNop())

	audio, err := s.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio.MIMEType != "audio/wav" {
		t.Fatalf("unexpected mime type: %q", audio.MIMEType)
	}
	if len(audio.Data) != 44+len(pcm) || string(audio.Data[:4]) != "RIFF" {
		t.Fatalf("expected a wav header, got %d bytes", len(audio.Data))
	}
	if rate := binary.LittleEndian.Uint32(audio.Data[24:28]); rate != 16000 {
		t.Fatalf("unexpected sample rate: %d", rate)
	}

	cfg := models.configs[0]
	if got := cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Puck" {
		t.Fatalf("unexpected voice: %q", got)
	}
}

func TestSynthesizerFailsWithoutAudio(t *testing.T) {
	s := NewSynthesizer(&fakeModels{resp: textResponse("no audio here")}, Config{MaxRetries: 1}, zap.NewNop())
	if _, err := s.Synthesize(context.Background(), "Hello"); err == nil {
		t.Fatal("expected error when no audio is returned")
	}
}
