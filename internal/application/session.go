package application

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// Validation messages shown on the error surface.
const (
	msgEmptyMessage     = "Please enter a message."
	msgEmptyQuestion    = "Please enter a question to compare."
	msgNoModel          = "Please select a model."
	msgNoCollection     = "Please select a collection."
	msgNoCandidates     = "Select at least one model to compare."
	msgNoJudge          = "Please select a judge model."
	msgJudgeIsCandidate = "The judge model cannot be one of the compared models."
	msgChatInFlight     = "a chat request is already in flight"
	msgCompareInFlight  = "a comparison is already running"
	msgPromptOpen       = "Confirm or cancel the pending change first."
)

// SelectionKind names the guarded selection with an open prompt.
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionModel
	SelectionCollection
)

// String returns the selection name.
func (k SelectionKind) String() string {
	switch k {
	case SelectionModel:
		return "model"
	case SelectionCollection:
		return "collection"
	default:
		return "none"
	}
}

// SessionOptions configures a Session. Zero values fall back to defaults,
// except CompareTimeout where zero means no client deadline.
type SessionOptions struct {
	ChatTimeout    time.Duration
	CompareTimeout time.Duration
	ChunkSize      int

	Logger  ports.Logger
	Metrics ports.MetricsCollector
}

// PendingChat is an accepted chat submission awaiting its round trip.
type PendingChat struct {
	Generation uint64
	Request    domain.ChatRequest

	started time.Time
	gen     context.Context
}

// ChatOutcome is the result of ExecuteChat.
type ChatOutcome struct {
	Pending  PendingChat
	Response *ports.ChatResponse
	Err      error
}

// PendingCompare is an accepted comparison run awaiting its round trip.
type PendingCompare struct {
	Generation uint64
	Request    domain.ComparisonRequest

	started time.Time
	gen     context.Context
}

// CompareOutcome is the result of ExecuteCompare.
type CompareOutcome struct {
	Pending  PendingCompare
	Response *ports.CompareResponse
	Err      error
}

// Snapshot is a consistent copy of the session state for rendering.
type Snapshot struct {
	Messages []domain.Message
	Input    string
	Loading  bool

	ChatModel   string
	Collection  string
	Models      domain.ModelCatalog
	Collections domain.CollectionCatalog

	// PendingKind and PendingValue describe the open confirmation prompt.
	PendingKind  SelectionKind
	PendingValue string

	Candidates       []string
	Judge            string
	IncludeRetrieval bool
	IncludeRagas     bool
	Comparing        bool
	Result           *domain.ComparisonResult

	Error    SurfacedError
	HasError bool
}

// Session is the state controller for chat and comparison. It owns the
// transcript, the guarded selections, the comparison settings and the
// shared error slot.
//
// Each request is split into Begin, Execute and Finish. Begin validates and
// mutates state synchronously; Execute performs the network call and never
// touches session state; Finish applies the outcome only if no reset or
// confirmed selection change happened in between. This lets an event loop
// run Execute off its own goroutine. Chat and Compare chain the three steps
// for blocking callers.
//
// Session is safe for concurrent use.
type Session struct {
	gateway    ports.Gateway
	opts       SessionOptions
	logger     ports.Logger
	metrics    ports.MetricsCollector
	normalizer *Normalizer
	loader     *CatalogLoader
	errors     *ErrorSurface

	mu          sync.Mutex
	models      domain.ModelCatalog
	collections domain.CollectionCatalog
	model       SelectionGuard
	collection  SelectionGuard
	messages    []domain.Message
	input       string
	loading     bool

	candidates       []string
	judge            string
	includeRetrieval bool
	includeRagas     bool
	comparing        bool
	result           *domain.ComparisonResult

	// generation tags in-flight requests; bumping it makes their
	// outcomes stale and cancels them through genCancel.
	generation uint64
	genCtx     context.Context
	genCancel  context.CancelFunc
}

// NewSession creates a session over gw.
func NewSession(gw ports.Gateway, opts SessionOptions) *Session {
	if opts.ChatTimeout == 0 {
		opts.ChatTimeout = DefaultChatTimeout
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = ports.NopLogger{}
	}

	genCtx, genCancel := context.WithCancel(context.Background())
	return &Session{
		gateway:    gw,
		opts:       opts,
		logger:     logger,
		metrics:    opts.Metrics,
		normalizer: NewNormalizer(),
		loader:     NewCatalogLoader(gw, logger, opts.Metrics),
		errors:     NewErrorSurface(),
		genCtx:     genCtx,
		genCancel:  genCancel,
	}
}

// Documents returns a DocumentManager that refreshes this session's
// collection catalog after creating a collection.
func (s *Session) Documents() *DocumentManager {
	return NewDocumentManager(s.gateway, s.logger, s.RefreshCollections)
}

// LoadCatalogs loads both catalogs and initializes the selections: the
// default (or first) model becomes the chat model and the sole candidate,
// and the backend's current collection becomes active.
func (s *Session) LoadCatalogs(ctx context.Context) error {
	cats, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.models = cats.Models
	s.collections = cats.Collections
	if initial, ok := cats.Models.Initial(); ok {
		s.model.Reset(initial)
		s.candidates = []string{initial}
		if s.judge == initial {
			s.judge = ""
		}
	}
	if cats.Collections.Current != "" && !cats.Collections.Failed {
		s.collection.Reset(cats.Collections.Current)
	}

	s.logger.Info("session", "catalogs loaded", map[string]any{
		"models":             len(cats.Models.Models),
		"models_failed":      cats.Models.Failed,
		"collections":        len(cats.Collections.Collections),
		"collections_failed": cats.Collections.Failed,
		"chat_model":         s.model.Active(),
		"collection":         s.collection.Active(),
	})
	return nil
}

// RefreshCollections reloads the collection catalog, keeping the active
// collection. A failed reload leaves a previously loaded catalog in place.
func (s *Session) RefreshCollections(ctx context.Context) error {
	cat := s.loader.LoadCollections(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cat.Failed && s.collections.Loaded && !s.collections.Failed {
		s.logger.Warn("session", "collection refresh failed; keeping previous catalog", map[string]any{
			"collections": len(s.collections.Collections),
		})
		return nil
	}
	s.collections = cat
	if s.collection.Active() == "" && cat.Current != "" && !cat.Failed {
		s.collection.Reset(cat.Current)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Messages:         slices.Clone(s.messages),
		Input:            s.input,
		Loading:          s.loading,
		ChatModel:        s.model.Active(),
		Collection:       s.collection.Active(),
		Models:           s.models,
		Collections:      s.collections,
		Candidates:       slices.Clone(s.candidates),
		Judge:            s.judge,
		IncludeRetrieval: s.includeRetrieval,
		IncludeRagas:     s.includeRagas,
		Comparing:        s.comparing,
		Result:           s.result,
	}
	snap.PendingKind, snap.PendingValue = s.pendingLocked()
	snap.Error, snap.HasError = s.errors.Current()
	return snap
}

// Selection returns the active chat model and collection.
func (s *Session) Selection() domain.ActiveSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ActiveSelection{ChatModel: s.model.Active(), Collection: s.collection.Active()}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Result returns the latest comparison result, nil when none.
func (s *Session) Result() *domain.ComparisonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Error returns the surfaced error, if any.
func (s *Session) Error() (SurfacedError, bool) { return s.errors.Current() }

// DismissError clears the surfaced error.
func (s *Session) DismissError() { s.errors.Dismiss() }

// SetInput stores the chat input draft.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Reset clears the transcript, the comparison result and the error,
// closes any confirmation prompt and abandons every in-flight request.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.model.Cancel()
	s.collection.Cancel()
	s.messages = nil
	s.result = nil
	s.errors.Dismiss()
	s.bumpGenerationLocked()
	s.event("reset", "applied")
}

// RequestModelChange asks to switch the chat model. It returns true when
// the change applied at once; false means a confirmation prompt is open or
// the model was already active.
func (s *Session) RequestModelChange(model string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection.PromptOpen() {
		return false, s.rejectLocked(domain.Invalid("model", domain.ErrPromptOpen, msgPromptOpen))
	}
	if err := s.checkModelLocked(model); err != nil {
		return false, s.rejectLocked(err)
	}
	return s.requestLocked(&s.model, SelectionModel, model), nil
}

// RequestCollectionChange asks to switch the active collection.
func (s *Session) RequestCollectionChange(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model.PromptOpen() {
		return false, s.rejectLocked(domain.Invalid("collection", domain.ErrPromptOpen, msgPromptOpen))
	}
	if strings.TrimSpace(name) == "" {
		return false, s.rejectLocked(domain.Invalid("collection", domain.ErrNoCollection, msgNoCollection))
	}
	if domain.IsSentinel(name) || (s.collections.Loaded && !s.collections.Failed && !s.collections.Contains(name)) {
		return false, s.rejectLocked(unknownSelection("collection", name, s.collections.Collections))
	}
	return s.requestLocked(&s.collection, SelectionCollection, name), nil
}

func (s *Session) requestLocked(g *SelectionGuard, kind SelectionKind, value string) bool {
	applied := g.Request(value, len(s.messages) == 0)
	switch {
	case applied:
		s.errors.Dismiss()
		s.event(kind.String()+"_change", "applied")
	case g.PromptOpen():
		s.event(kind.String()+"_change", "staged")
	}
	return applied
}

// PendingChange reports the open confirmation prompt.
func (s *Session) PendingChange() (SelectionKind, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, value := s.pendingLocked()
	return kind, value, kind != SelectionNone
}

func (s *Session) pendingLocked() (SelectionKind, string) {
	if v, ok := s.model.Pending(); ok {
		return SelectionModel, v
	}
	if v, ok := s.collection.Pending(); ok {
		return SelectionCollection, v
	}
	return SelectionNone, ""
}

// ConfirmChange applies the staged selection, clears the transcript and
// the error, and abandons in-flight requests. It returns false when no
// prompt was open.
func (s *Session) ConfirmChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, _ := s.pendingLocked()
	var (
		value string
		ok    bool
	)
	switch kind {
	case SelectionModel:
		value, ok = s.model.Confirm()
	case SelectionCollection:
		value, ok = s.collection.Confirm()
	}
	if !ok {
		return false
	}

	s.messages = nil
	s.errors.Dismiss()
	s.bumpGenerationLocked()
	s.event(kind.String()+"_change", "confirmed")
	s.logger.Info("session", "selection changed", map[string]any{
		"selection": kind.String(),
		"value":     value,
	})
	return true
}

// CancelChange discards the staged selection.
func (s *Session) CancelChange() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, _ := s.pendingLocked()
	if kind == SelectionNone {
		return
	}
	s.model.Cancel()
	s.collection.Cancel()
	s.event(kind.String()+"_change", "canceled")
}

// BeginChat validates a chat submission and, when accepted, appends the
// user message and marks the session loading.
func (s *Session) BeginChat(text string) (PendingChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		s.event("chat_submit", "in_flight")
		return PendingChat{}, domain.Invalid("chat", domain.ErrRequestInFlight, msgChatInFlight)
	}
	if err := s.checkChatLocked(text); err != nil {
		s.event("chat_submit", "rejected")
		return PendingChat{}, s.rejectLocked(err)
	}

	s.messages = append(s.messages, domain.UserMessage(text))
	s.input = ""
	s.errors.Dismiss()
	s.loading = true
	s.event("chat_submit", "accepted")

	return PendingChat{
		Generation: s.generation,
		Request: domain.ChatRequest{
			Message:    text,
			Model:      s.model.Active(),
			Collection: s.collection.Active(),
			ChunkSize:  s.opts.ChunkSize,
		},
		started: time.Now(),
		gen:     s.genCtx,
	}, nil
}

func (s *Session) checkChatLocked(text string) error {
	switch {
	case strings.TrimSpace(text) == "":
		return domain.Invalid("chat", domain.ErrEmptyMessage, msgEmptyMessage)
	case s.model.PromptOpen() || s.collection.PromptOpen():
		return domain.Invalid("chat", domain.ErrPromptOpen, msgPromptOpen)
	case s.model.Active() == "":
		return domain.Invalid("chat", domain.ErrNoModel, msgNoModel)
	case s.collection.Active() == "":
		return domain.Invalid("chat", domain.ErrNoCollection, msgNoCollection)
	}
	return nil
}

// ExecuteChat performs the chat round trip for p under the chat timeout.
// It does not modify the session.
func (s *Session) ExecuteChat(ctx context.Context, p PendingChat) ChatOutcome {
	ctx, cancel := requestContext(ctx, p.gen, s.opts.ChatTimeout)
	defer cancel()

	resp, err := s.gateway.Chat(ctx, p.Request)
	return ChatOutcome{Pending: p, Response: resp, Err: err}
}

// FinishChat applies o. A successful answer or the classified failure is
// appended as an assistant message. It returns false, changing nothing,
// when o belongs to a superseded generation.
func (s *Session) FinishChat(o ChatOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Pending.Generation != s.generation {
		s.event("stale_response", "chat")
		return false
	}
	s.loading = false

	outcome := "success"
	if o.Err != nil {
		se := s.errors.Present(o.Err)
		s.messages = append(s.messages, domain.AssistantMessage(se.Message))
		outcome = se.Kind.String()
		s.logger.Warn("session", "chat failed", map[string]any{
			"kind":  outcome,
			"model": o.Pending.Request.Model,
			"error": o.Err.Error(),
		})
	} else {
		answer := ""
		if o.Response != nil {
			answer = o.Response.Response
		}
		s.messages = append(s.messages, domain.AssistantMessage(answer))
	}
	s.latency("chat", o.Pending.started, outcome)
	return true
}

// Chat submits text and waits for the answer. The returned error is the
// validation or gateway failure; failures are also surfaced and recorded
// in the transcript like any other chat turn.
func (s *Session) Chat(ctx context.Context, text string) (string, error) {
	p, err := s.BeginChat(text)
	if err != nil {
		return "", err
	}
	o := s.ExecuteChat(ctx, p)
	s.FinishChat(o)
	if o.Err != nil {
		return "", o.Err
	}
	if o.Response == nil {
		return "", nil
	}
	return o.Response.Response, nil
}

// ToggleCandidate adds model to the candidate set, or removes it if
// present. Adding the current judge clears the judge.
func (s *Session) ToggleCandidate(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.candidates, model); i >= 0 {
		s.candidates = slices.Delete(s.candidates, i, i+1)
		return nil
	}
	if err := s.checkModelLocked(model); err != nil {
		return s.rejectLocked(err)
	}
	s.candidates = append(s.candidates, model)
	if s.judge == model {
		s.judge = ""
	}
	return nil
}

// SetCandidates replaces the candidate set, keeping first occurrence order.
func (s *Session) SetCandidates(models []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(models))
	for _, m := range models {
		if slices.Contains(out, m) {
			continue
		}
		if err := s.checkModelLocked(m); err != nil {
			return s.rejectLocked(err)
		}
		out = append(out, m)
	}
	s.candidates = out
	if slices.Contains(out, s.judge) {
		s.judge = ""
	}
	return nil
}

// Candidates returns the candidate models in selection order.
func (s *Session) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.candidates)
}

// SetJudge selects the judge model. An empty model clears it.
func (s *Session) SetJudge(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model == "" {
		s.judge = ""
		return nil
	}
	if err := s.checkModelLocked(model); err != nil {
		return s.rejectLocked(err)
	}
	if slices.Contains(s.candidates, model) {
		return s.rejectLocked(domain.Invalid("judge", domain.ErrJudgeIsCandidate, msgJudgeIsCandidate))
	}
	s.judge = model
	return nil
}

// Judge returns the judge model.
func (s *Session) Judge() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.judge
}

// JudgeOptions lists the catalog models that may judge: every model that
// is not a candidate.
func (s *Session) JudgeOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.models.Failed {
		return nil
	}
	var out []string
	for _, m := range s.models.Models {
		if !slices.Contains(s.candidates, m) {
			out = append(out, m)
		}
	}
	return out
}

// SetIncludeRetrievalMetrics toggles retrieval metrics for later runs.
func (s *Session) SetIncludeRetrievalMetrics(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeRetrieval = on
}

// SetIncludeRagasMetrics toggles RAGAS metrics for later runs.
func (s *Session) SetIncludeRagasMetrics(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeRagas = on
}

// BeginCompare validates a comparison run and, when accepted, clears the
// previous result and marks the session comparing.
func (s *Session) BeginCompare(question string) (PendingCompare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.comparing {
		s.event("compare_submit", "in_flight")
		return PendingCompare{}, domain.Invalid("comparison", domain.ErrRequestInFlight, msgCompareInFlight)
	}
	if err := s.checkCompareLocked(question); err != nil {
		s.event("compare_submit", "rejected")
		return PendingCompare{}, s.rejectLocked(err)
	}

	s.result = nil
	s.errors.Dismiss()
	s.comparing = true
	s.event("compare_submit", "accepted")
	if s.metrics != nil {
		s.metrics.RecordHistogram(ports.MetricComparisonModels, float64(len(s.candidates)), nil)
	}

	return PendingCompare{
		Generation: s.generation,
		Request: domain.ComparisonRequest{
			Question:                question,
			CandidateModels:         slices.Clone(s.candidates),
			Collection:              s.collection.Active(),
			JudgeModel:              s.judge,
			IncludeRetrievalMetrics: s.includeRetrieval,
			IncludeRagasMetrics:     s.includeRagas,
		},
		started: time.Now(),
		gen:     s.genCtx,
	}, nil
}

func (s *Session) checkCompareLocked(question string) error {
	switch {
	case strings.TrimSpace(question) == "":
		return domain.Invalid("comparison", domain.ErrEmptyMessage, msgEmptyQuestion)
	case s.collection.Active() == "":
		return domain.Invalid("comparison", domain.ErrNoCollection, msgNoCollection)
	case len(s.candidates) == 0:
		return domain.Invalid("comparison", domain.ErrNoCandidates, msgNoCandidates)
	case s.judge == "":
		return domain.Invalid("comparison", domain.ErrNoJudge, msgNoJudge)
	case slices.Contains(s.candidates, s.judge):
		return domain.Invalid("comparison", domain.ErrJudgeIsCandidate, msgJudgeIsCandidate)
	}
	return nil
}

// ExecuteCompare performs the grouped comparison call for p. A zero
// compare timeout waits for the backend indefinitely.
func (s *Session) ExecuteCompare(ctx context.Context, p PendingCompare) CompareOutcome {
	ctx, cancel := requestContext(ctx, p.gen, s.opts.CompareTimeout)
	defer cancel()

	resp, err := s.gateway.CompareModels(ctx, p.Request)
	return CompareOutcome{Pending: p, Response: resp, Err: err}
}

// FinishCompare applies o. Success replaces the result wholesale; failure
// surfaces the classified error and leaves no result. It returns false,
// changing nothing, when o belongs to a superseded generation.
func (s *Session) FinishCompare(o CompareOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Pending.Generation != s.generation {
		s.event("stale_response", "compare")
		return false
	}
	s.comparing = false

	outcome := "success"
	if o.Err != nil {
		se := s.errors.Present(o.Err)
		s.result = nil
		outcome = se.Kind.String()
		s.logger.Warn("session", "comparison failed", map[string]any{
			"kind":   outcome,
			"models": o.Pending.Request.CandidateModels,
			"judge":  o.Pending.Request.JudgeModel,
			"error":  o.Err.Error(),
		})
	} else {
		s.result = s.normalizer.NormalizeComparison(o.Pending.Request, o.Response)
	}
	s.latency("compare", o.Pending.started, outcome)
	return true
}

// Compare runs a comparison and waits for the result.
func (s *Session) Compare(ctx context.Context, question string) (*domain.ComparisonResult, error) {
	p, err := s.BeginCompare(question)
	if err != nil {
		return nil, err
	}
	o := s.ExecuteCompare(ctx, p)
	s.FinishCompare(o)
	if o.Err != nil {
		return nil, o.Err
	}
	return s.Result(), nil
}

// requestContext derives the context for one round trip: it is canceled
// when gen is superseded and bounded by timeout when positive.
func requestContext(parent, gen context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := func() bool { return false }
	if gen != nil {
		stop = context.AfterFunc(gen, cancel)
	}
	if timeout <= 0 {
		return ctx, func() {
			stop()
			cancel()
		}
	}
	tctx, tcancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		stop()
		tcancel()
		cancel()
	}
}

func (s *Session) checkModelLocked(model string) error {
	if strings.TrimSpace(model) == "" {
		return domain.Invalid("model", domain.ErrNoModel, msgNoModel)
	}
	if domain.IsSentinel(model) || (s.models.Loaded && !s.models.Failed && !s.models.Contains(model)) {
		return unknownSelection("model", model, s.models.Models)
	}
	return nil
}

// rejectLocked surfaces a validation failure and returns it.
func (s *Session) rejectLocked(err error) error {
	s.errors.Present(err)
	return err
}

// bumpGenerationLocked supersedes every in-flight request.
func (s *Session) bumpGenerationLocked() {
	s.generation++
	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	s.loading = false
	s.comparing = false
}

func (s *Session) event(event, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCounter(ports.MetricSessionEvents, 1, map[string]string{
		"event":   event,
		"outcome": outcome,
	})
}

func (s *Session) latency(mode string, started time.Time, outcome string) {
	if s.metrics == nil || started.IsZero() {
		return
	}
	s.metrics.RecordLatency(mode, time.Since(started), map[string]string{"outcome": outcome})
}
