package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
	"github.com/ahrav/ragconsole/internal/testutils"
)

// newLoadedSession returns a session whose catalogs are loaded from the
// default mock gateway: chat model b, collection docs.
func newLoadedSession(t *testing.T, opts SessionOptions) (*Session, *testutils.MockGateway) {
	t.Helper()
	gw := testutils.NewMockGateway()
	s := NewSession(gw, opts)
	require.NoError(t, s.LoadCatalogs(context.Background()))
	return s, gw
}

func TestSession_LoadCatalogs(t *testing.T) {
	s, _ := newLoadedSession(t, SessionOptions{})
	snap := s.Snapshot()

	assert.Equal(t, "b", snap.ChatModel)
	assert.Equal(t, "docs", snap.Collection)
	assert.Equal(t, domain.ActiveSelection{ChatModel: "b", Collection: "docs"}, s.Selection())
	assert.Equal(t, []string{"b"}, snap.Candidates)
	assert.Equal(t, []string{"a", "b", "c"}, snap.Models.Models)
	assert.False(t, snap.Models.Failed)
}

func TestSession_LoadCatalogsFailures(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(gw *testutils.MockGateway)
		wantModels     []string
		wantCollection []string
	}{
		{
			name: "missing models array",
			setup: func(gw *testutils.MockGateway) {
				gw.Models = &ports.ModelsResponse{}
			},
			wantModels:     []string{domain.SentinelModelsInvalid},
			wantCollection: []string{"docs", "notes"},
		},
		{
			name: "unreadable models body",
			setup: func(gw *testutils.MockGateway) {
				gw.ModelsErr = ports.NewGatewayError("list_models", ports.ErrorKindInvalidResponse, 200, "", ports.ErrInvalidResponse)
			},
			wantModels:     []string{domain.SentinelModelsInvalid},
			wantCollection: []string{"docs", "notes"},
		},
		{
			name: "connection failure",
			setup: func(gw *testutils.MockGateway) {
				gw.ModelsErr = ports.NewGatewayError("list_models", ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable)
				gw.CollectionsErr = ports.NewGatewayError("list_collections", ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable)
			},
			wantModels:     []string{domain.SentinelConnectionError},
			wantCollection: []string{domain.SentinelCollectionsUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutils.NewMockGateway()
			tt.setup(gw)
			s := NewSession(gw, SessionOptions{})
			require.NoError(t, s.LoadCatalogs(context.Background()))

			snap := s.Snapshot()
			assert.Equal(t, tt.wantModels, snap.Models.Models)
			assert.Equal(t, tt.wantCollection, snap.Collections.Collections)
		})
	}
}

func TestSession_SentinelsAreNotSelectable(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.ModelsErr = errors.New("boom")
	s := NewSession(gw, SessionOptions{})
	require.NoError(t, s.LoadCatalogs(context.Background()))

	_, err := s.RequestModelChange(domain.SentinelConnectionError)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownSelection)
	assert.Empty(t, s.Snapshot().ChatModel)
}

func TestSession_BeginChatRejectsBlankInput(t *testing.T) {
	inputs := []string{"", " ", "\t", "\n  \r\n", "  "}

	for _, in := range inputs {
		t.Run(strconvQuote(in), func(t *testing.T) {
			s, gw := newLoadedSession(t, SessionOptions{})

			_, err := s.Chat(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEmptyMessage)
			assert.Empty(t, s.Messages())
			assert.Zero(t, gw.ChatCalls())

			se, ok := s.Error()
			require.True(t, ok)
			assert.Equal(t, KindValidation, se.Kind)
		})
	}
}

func TestSession_BeginChatPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(gw *testutils.MockGateway)
		wantErr error
	}{
		{
			name:    "no model",
			setup:   func(gw *testutils.MockGateway) { gw.Models = &ports.ModelsResponse{Models: []string{}} },
			wantErr: domain.ErrNoModel,
		},
		{
			name:    "no collection",
			setup:   func(gw *testutils.MockGateway) { gw.Collections.Current = "" },
			wantErr: domain.ErrNoCollection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutils.NewMockGateway()
			tt.setup(gw)
			s := NewSession(gw, SessionOptions{})
			require.NoError(t, s.LoadCatalogs(context.Background()))

			_, err := s.BeginChat("hello")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.Messages())
			assert.False(t, s.Snapshot().Loading)
		})
	}
}

func TestSession_ChatSuccess(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{ChunkSize: 512})
	s.SetInput("draft")

	answer, err := s.Chat(context.Background(), "What is X?")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer)

	assert.Equal(t, []domain.Message{
		domain.UserMessage("What is X?"),
		domain.AssistantMessage("mock answer"),
	}, s.Messages())

	require.Len(t, gw.ChatRequests, 1)
	assert.Equal(t, domain.ChatRequest{
		Message:    "What is X?",
		Model:      "b",
		Collection: "docs",
		ChunkSize:  512,
	}, gw.ChatRequests[0])

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Input)
	assert.False(t, snap.HasError)
}

func TestSession_ChatFailureAppendsClassifiedMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server error with detail",
			err:     ports.NewGatewayError("chat", ports.ErrorKindServer, 500, "collection not indexed", ports.ErrBadStatus),
			wantMsg: "Server error (500): collection not indexed",
		},
		{
			name:    "server error without detail",
			err:     ports.NewGatewayError("chat", ports.ErrorKindServer, 502, "", ports.ErrBadStatus),
			wantMsg: "Server error (502): the server could not process the request.",
		},
		{
			name:    "network error",
			err:     ports.NewGatewayError("chat", ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable),
			wantMsg: MessageNetwork,
		},
		{
			name:    "timeout",
			err:     ports.NewGatewayError("chat", ports.ErrorKindTimeout, 0, "", ports.ErrTimeout),
			wantMsg: MessageTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gw := newLoadedSession(t, SessionOptions{})
			gw.ChatErr = tt.err

			_, err := s.Chat(context.Background(), "hello")
			require.Error(t, err)

			msgs := s.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, domain.UserMessage("hello"), msgs[0])
			assert.Equal(t, domain.AssistantMessage(tt.wantMsg), msgs[1])

			se, ok := s.Error()
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, se.Message)
			assert.False(t, s.Snapshot().Loading)
		})
	}
}

func TestSession_ChatTimeout(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{ChatTimeout: 20 * time.Millisecond})
	started := gw.Hold()
	defer gw.Release()

	done := make(chan error, 1)
	go func() {
		_, err := s.Chat(context.Background(), "slow question")
		done <- err
	}()

	<-started
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("chat did not time out")
	}

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MessageTimeout, msgs[1].Text)
	assert.False(t, msgs[1].IsUser)
	assert.False(t, s.Snapshot().Loading)
	assert.Equal(t, 1, gw.ChatCalls(), "timeouts are not retried")
}

func TestSession_ChatRejectedWhileLoading(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})

	p, err := s.BeginChat("first")
	require.NoError(t, err)

	_, err = s.BeginChat("second")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRequestInFlight)
	assert.Len(t, s.Messages(), 1)

	assert.True(t, s.FinishChat(s.ExecuteChat(context.Background(), p)))
	assert.Equal(t, 1, gw.ChatCalls())
	assert.Len(t, s.Messages(), 2)
}

func TestSession_ModelChangeGuard(t *testing.T) {
	t.Run("applies immediately on empty conversation", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})

		applied, err := s.RequestModelChange("a")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "a", s.Snapshot().ChatModel)
		_, _, open := s.PendingChange()
		assert.False(t, open)
	})

	t.Run("cancel leaves selection and log untouched", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})
		_, err := s.Chat(context.Background(), "hello")
		require.NoError(t, err)

		applied, err := s.RequestModelChange("a")
		require.NoError(t, err)
		assert.False(t, applied)

		kind, value, open := s.PendingChange()
		require.True(t, open)
		assert.Equal(t, SelectionModel, kind)
		assert.Equal(t, "a", value)
		assert.Equal(t, "b", s.Snapshot().ChatModel)

		s.CancelChange()
		snap := s.Snapshot()
		assert.Equal(t, "b", snap.ChatModel)
		assert.Len(t, snap.Messages, 2)
		assert.Equal(t, SelectionNone, snap.PendingKind)
	})

	t.Run("confirm applies and clears the log", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})
		_, err := s.Chat(context.Background(), "hello")
		require.NoError(t, err)

		_, err = s.RequestCollectionChange("notes")
		require.NoError(t, err)
		assert.True(t, s.ConfirmChange())

		snap := s.Snapshot()
		assert.Equal(t, "notes", snap.Collection)
		assert.Empty(t, snap.Messages)
		assert.False(t, snap.HasError)
		assert.Equal(t, SelectionNone, snap.PendingKind)
	})

	t.Run("same value is a no-op", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})
		_, err := s.Chat(context.Background(), "hello")
		require.NoError(t, err)

		applied, err := s.RequestModelChange("b")
		require.NoError(t, err)
		assert.False(t, applied)
		_, _, open := s.PendingChange()
		assert.False(t, open)
	})

	t.Run("one prompt at a time", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})
		_, err := s.Chat(context.Background(), "hello")
		require.NoError(t, err)

		_, err = s.RequestModelChange("a")
		require.NoError(t, err)
		_, err = s.RequestCollectionChange("notes")
		assert.ErrorIs(t, err, domain.ErrPromptOpen)
		assert.Equal(t, "docs", s.Snapshot().Collection)
	})

	t.Run("unknown model suggests the closest entry", func(t *testing.T) {
		gw := testutils.NewMockGateway()
		gw.Models = &ports.ModelsResponse{Models: []string{"llama3", "mistral"}}
		s := NewSession(gw, SessionOptions{})
		require.NoError(t, s.LoadCatalogs(context.Background()))

		_, err := s.RequestModelChange("Lama3")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownSelection)
		assert.Contains(t, err.Error(), `did you mean "llama3"`)
	})
}

func TestSession_ConfirmIgnoresLateChatResponse(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})
	_, err := s.Chat(context.Background(), "hello")
	require.NoError(t, err)

	p, err := s.BeginChat("second question")
	require.NoError(t, err)

	_, err = s.RequestModelChange("a")
	require.NoError(t, err)
	require.True(t, s.ConfirmChange())

	// The response arrives after the conversation was reset.
	o := ChatOutcome{Pending: p, Response: &ports.ChatResponse{Response: "late"}}
	assert.False(t, s.FinishChat(o))

	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, gw.ChatCalls())
}

func TestSession_ConfirmCancelsInFlightRequest(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})
	_, err := s.Chat(context.Background(), "hello")
	require.NoError(t, err)

	started := gw.Hold()
	defer gw.Release()

	p, err := s.BeginChat("slow")
	require.NoError(t, err)

	outcome := make(chan ChatOutcome, 1)
	go func() { outcome <- s.ExecuteChat(context.Background(), p) }()
	<-started

	_, err = s.RequestModelChange("a")
	require.NoError(t, err)
	require.True(t, s.ConfirmChange())

	select {
	case o := <-outcome:
		var gerr *ports.GatewayError
		require.ErrorAs(t, o.Err, &gerr)
		assert.Equal(t, ports.ErrorKindCanceled, gerr.Kind)
		assert.False(t, s.FinishChat(o))
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight chat was not canceled")
	}
	assert.Empty(t, s.Messages())
}

func TestSession_Reset(t *testing.T) {
	s, _ := newLoadedSession(t, SessionOptions{})
	_, err := s.Chat(context.Background(), "hello")
	require.NoError(t, err)
	require.NoError(t, s.SetJudge("c"))
	_, err = s.Compare(context.Background(), "q")
	require.NoError(t, err)

	s.Reset()
	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.HasError)
	assert.Equal(t, "b", snap.ChatModel)
}

func TestSession_ResetClosesPrompt(t *testing.T) {
	tests := []struct {
		name    string
		request func(s *Session) (bool, error)
	}{
		{"model", func(s *Session) (bool, error) { return s.RequestModelChange("c") }},
		{"collection", func(s *Session) (bool, error) { return s.RequestCollectionChange("notes") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newLoadedSession(t, SessionOptions{})
			_, err := s.Chat(context.Background(), "hello")
			require.NoError(t, err)

			applied, err := tt.request(s)
			require.NoError(t, err)
			require.False(t, applied)
			_, _, open := s.PendingChange()
			require.True(t, open)

			s.Reset()
			_, _, open = s.PendingChange()
			assert.False(t, open)
			snap := s.Snapshot()
			assert.Equal(t, SelectionNone, snap.PendingKind)
			assert.Equal(t, "b", snap.ChatModel)
			assert.Equal(t, "docs", snap.Collection)
		})
	}
}

func TestSession_CompareExactPayload(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.Collections = &ports.CollectionsResponse{Collections: []string{"docs"}, Current: "docs"}
	s := NewSession(gw, SessionOptions{})
	require.NoError(t, s.LoadCatalogs(context.Background()))

	require.NoError(t, s.SetCandidates([]string{"a", "b"}))
	require.NoError(t, s.SetJudge("c"))

	_, err := s.Compare(context.Background(), "What is X?")
	require.NoError(t, err)

	require.Len(t, gw.CompareRequests, 1)
	body, err := json.Marshal(gw.CompareRequests[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "What is X?",
		"models": ["a", "b"],
		"collection": "docs",
		"judge_model": "c",
		"include_retrieval_metrics": false,
		"include_ragas_metrics": false
	}`, string(body))
}

func TestSession_ComparePreconditions(t *testing.T) {
	tests := []struct {
		name     string
		question string
		setup    func(t *testing.T, s *Session)
		wantErr  error
	}{
		{
			name:     "empty question",
			question: "   ",
			setup:    func(t *testing.T, s *Session) { require.NoError(t, s.SetJudge("c")) },
			wantErr:  domain.ErrEmptyMessage,
		},
		{
			name:     "no candidates",
			question: "q",
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.SetCandidates(nil))
				require.NoError(t, s.SetJudge("c"))
			},
			wantErr: domain.ErrNoCandidates,
		},
		{
			name:     "no judge",
			question: "q",
			setup:    func(t *testing.T, s *Session) {},
			wantErr:  domain.ErrNoJudge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gw := newLoadedSession(t, SessionOptions{})
			tt.setup(t, s)

			_, err := s.Compare(context.Background(), tt.question)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, gw.CompareCalls())
			assert.False(t, s.Snapshot().Comparing)

			se, ok := s.Error()
			require.True(t, ok)
			assert.Equal(t, KindValidation, se.Kind)
		})
	}
}

func TestSession_JudgeNeverScoresItself(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})

	require.NoError(t, s.SetJudge("a"))
	assert.Equal(t, []string{"a", "c"}, s.JudgeOptions())

	// Adding the judge as a candidate clears the judge.
	require.NoError(t, s.ToggleCandidate("a"))
	assert.Empty(t, s.Judge())
	assert.Equal(t, []string{"c"}, s.JudgeOptions())

	err := s.SetJudge("a")
	assert.ErrorIs(t, err, domain.ErrJudgeIsCandidate)

	_, err = s.Compare(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrNoJudge)
	assert.Zero(t, gw.CompareCalls())
}

func TestSession_CheckCompareRejectsJudgeCandidate(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})

	// Bypass the setters to simulate a caller that skipped the UI filter.
	s.mu.Lock()
	s.candidates = []string{"a", "c"}
	s.judge = "c"
	s.mu.Unlock()

	_, err := s.BeginCompare("q")
	assert.ErrorIs(t, err, domain.ErrJudgeIsCandidate)
	assert.Zero(t, gw.CompareCalls())
}

func TestSession_CompareSuccessAndFailure(t *testing.T) {
	t.Run("success replaces result", func(t *testing.T) {
		s, _ := newLoadedSession(t, SessionOptions{})
		require.NoError(t, s.SetCandidates([]string{"a", "b"}))
		require.NoError(t, s.SetJudge("c"))

		res, err := s.Compare(context.Background(), "q")
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, []string{"a", "b"}, res.Models)
		assert.Equal(t, "answer from a", res.PerModel["a"])
		assert.False(t, s.Snapshot().Comparing)
	})

	t.Run("failure clears previous result", func(t *testing.T) {
		s, gw := newLoadedSession(t, SessionOptions{})
		require.NoError(t, s.SetJudge("c"))
		_, err := s.Compare(context.Background(), "q")
		require.NoError(t, err)
		require.NotNil(t, s.Result())

		gw.CompareErr = ports.NewGatewayError("compare_models", ports.ErrorKindServer, 422, "judge model not found", ports.ErrBadStatus)
		_, err = s.Compare(context.Background(), "q")
		require.Error(t, err)

		assert.Nil(t, s.Result())
		se, ok := s.Error()
		require.True(t, ok)
		assert.Equal(t, "Server error (422): judge model not found", se.Message)
		assert.Empty(t, s.Messages(), "comparison failures are not added to the transcript")
	})
}

func TestSession_CompareRejectedWhileComparing(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})
	require.NoError(t, s.SetJudge("c"))

	p, err := s.BeginCompare("q")
	require.NoError(t, err)
	_, err = s.BeginCompare("q again")
	assert.ErrorIs(t, err, domain.ErrRequestInFlight)

	assert.True(t, s.FinishCompare(s.ExecuteCompare(context.Background(), p)))
	assert.Equal(t, 1, gw.CompareCalls())
}

func TestSession_StaleCompareIgnored(t *testing.T) {
	s, _ := newLoadedSession(t, SessionOptions{})
	require.NoError(t, s.SetJudge("c"))

	p, err := s.BeginCompare("q")
	require.NoError(t, err)
	s.Reset()

	o := CompareOutcome{Pending: p, Response: &ports.CompareResponse{}}
	assert.False(t, s.FinishCompare(o))
	assert.Nil(t, s.Result())
	assert.False(t, s.Snapshot().Comparing)
}

func TestSession_SubmitClearsPreviousError(t *testing.T) {
	s, _ := newLoadedSession(t, SessionOptions{})

	_, err := s.Chat(context.Background(), " ")
	require.Error(t, err)
	_, ok := s.Error()
	require.True(t, ok)

	_, err = s.Chat(context.Background(), "hello")
	require.NoError(t, err)
	_, ok = s.Error()
	assert.False(t, ok)
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
