package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ahrav/ragconsole/internal/application"
	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

const tuiHelp = "enter send · tab chat/compare · ctrl+t theme · ctrl+r reset · esc dismiss · /help commands · ctrl+c quit"

const slashHelp = "/model NAME · /collection NAME · /models a,b · /toggle NAME · /judge [NAME] · " +
	"/retrieval on|off · /ragas on|off · /new NAME · /upload FILES · /process DIR · /reset"

type viewMode int

const (
	modeChat viewMode = iota
	modeCompare
)

func (v viewMode) String() string {
	if v == modeCompare {
		return "compare"
	}
	return "chat"
}

type (
	catalogsLoadedMsg struct{ err error }
	chatDoneMsg       struct{ outcome application.ChatOutcome }
	compareDoneMsg    struct{ outcome application.CompareOutcome }
	statusMsg         struct {
		text string
		err  error
	}
)

// tuiModel is the bubbletea model. The session owns all chat and
// comparison state; the model only holds view concerns.
type tuiModel struct {
	ctx     context.Context
	session *application.Session
	docs    *application.DocumentManager
	prefs   ports.PreferenceStore
	logger  ports.Logger
	chunk   int

	theme  theme
	mode   viewMode
	input  textinput.Model
	spin   spinner.Model
	width  int
	ready  bool
	status string
}

func newTUIModel(ctx context.Context, a *app, dark bool) tuiModel {
	in := textinput.New()
	in.Placeholder = "Ask about your documents"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 60
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return tuiModel{
		ctx:     ctx,
		session: a.session,
		docs:    a.docs,
		prefs:   a.prefs,
		logger:  a.logger,
		chunk:   a.cfg.ChunkSize,
		theme:   newTheme(dark),
		input:   in,
		spin:    s,
	}
}

func runTUI(ctx context.Context, a *app, out *printer, args []string) error {
	if err := parseFlags(newFlagSet("tui", out), args); err != nil {
		return err
	}
	dark, err := a.prefs.DarkMode()
	if err != nil {
		a.logger.Warn("tui", "could not read theme preference", map[string]any{"error": err.Error()})
	}

	p := tea.NewProgram(newTUIModel(ctx, a, dark), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, textinput.Blink, m.loadCatalogs())
}

func (m tuiModel) loadCatalogs() tea.Cmd {
	return func() tea.Msg {
		return catalogsLoadedMsg{err: m.session.LoadCatalogs(m.ctx)}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case catalogsLoadedMsg:
		m.ready = true
		if msg.err != nil {
			m.status = "catalogs not loaded: " + msg.err.Error()
		}
		return m, nil

	case chatDoneMsg:
		m.session.FinishChat(msg.outcome)
		return m, nil

	case compareDoneMsg:
		m.session.FinishCompare(msg.outcome)
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.status = m.theme.Error.Render(application.Classify(msg.err).Message)
			return m, nil
		}
		m.status = msg.text
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.session.SetInput(m.input.Value())
	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey processes keys with a fixed meaning. It reports false for keys
// that belong to the text input.
func (m tuiModel) handleKey(msg tea.KeyMsg) (tuiModel, tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return m, tea.Quit, true
	case "ctrl+r":
		m.session.Reset()
		m.status = ""
		return m, nil, true
	}

	// An open confirmation prompt captures the keyboard.
	if _, _, open := m.session.PendingChange(); open {
		switch key {
		case "y", "Y", "enter":
			m.session.ConfirmChange()
		case "n", "N", "esc":
			m.session.CancelChange()
		}
		return m, nil, true
	}

	switch key {
	case "esc":
		m.session.DismissError()
		m.status = ""
		return m, nil, true
	case "tab":
		if m.mode == modeChat {
			m.mode = modeCompare
			m.input.Placeholder = "Question to compare across models"
		} else {
			m.mode = modeChat
			m.input.Placeholder = "Ask about your documents"
		}
		return m, nil, true
	case "ctrl+t":
		m.theme = newTheme(!m.theme.Dark)
		if err := m.prefs.SetDarkMode(m.theme.Dark); err != nil {
			m.logger.Warn("tui", "could not store theme preference", map[string]any{"error": err.Error()})
		}
		return m, nil, true
	case "enter":
		next, cmd := m.submit(m.input.Value())
		return next, cmd, true
	}
	return m, nil, false
}

func (m tuiModel) submit(text string) (tuiModel, tea.Cmd) {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		m.input.SetValue("")
		m.session.SetInput("")
		return m.command(strings.TrimSpace(text))
	}

	s, ctx := m.session, m.ctx
	switch m.mode {
	case modeCompare:
		p, err := s.BeginCompare(text)
		if err != nil {
			return m.rejected(err), nil
		}
		m.input.SetValue("")
		return m, func() tea.Msg { return compareDoneMsg{s.ExecuteCompare(ctx, p)} }
	default:
		p, err := s.BeginChat(text)
		if err != nil {
			return m.rejected(err), nil
		}
		m.input.SetValue("")
		return m, func() tea.Msg { return chatDoneMsg{s.ExecuteChat(ctx, p)} }
	}
}

// rejected notes a refused submission. Validation failures are already on
// the session's error surface; an in-flight rejection only gets a status.
func (m tuiModel) rejected(err error) tuiModel {
	if _, shown := m.session.Error(); !shown {
		m.status = application.Classify(err).Message
	}
	return m
}

func (m tuiModel) command(line string) (tuiModel, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	s := m.session
	m.status = ""

	switch name {
	case "model":
		_, _ = s.RequestModelChange(arg)
	case "collection":
		_, _ = s.RequestCollectionChange(arg)
	case "models":
		_ = s.SetCandidates(splitList(arg))
	case "toggle":
		_ = s.ToggleCandidate(arg)
	case "judge":
		if arg == "" {
			m.status = "judges: " + orNone(strings.Join(s.JudgeOptions(), ", "))
			break
		}
		_ = s.SetJudge(arg)
	case "retrieval", "ragas":
		on, ok := parseSwitch(arg)
		if !ok {
			m.status = fmt.Sprintf("usage: /%s on|off", name)
			break
		}
		if name == "retrieval" {
			s.SetIncludeRetrievalMetrics(on)
		} else {
			s.SetIncludeRagasMetrics(on)
		}
	case "reset":
		s.Reset()
	case "new":
		return m, m.background(func(ctx context.Context) (string, error) {
			return m.docs.CreateCollection(ctx, arg)
		})
	case "upload":
		collection := s.Selection().Collection
		return m, m.background(func(ctx context.Context) (string, error) {
			return m.docs.UploadDocuments(ctx, collection, m.chunk, strings.Fields(arg))
		})
	case "process":
		collection := s.Selection().Collection
		return m, m.background(func(ctx context.Context) (string, error) {
			return m.docs.ProcessDirectory(ctx, arg, m.chunk, collection)
		})
	case "help":
		m.status = slashHelp
	default:
		m.status = fmt.Sprintf("unknown command /%s; /help lists commands", name)
	}
	return m, nil
}

// background runs a document operation off the event loop.
func (m tuiModel) background(fn func(context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		text, err := fn(ctx)
		return statusMsg{text: text, err: err}
	}
}

func parseSwitch(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "on", "true", "yes":
		return true, true
	case "off", "false", "no":
		return false, true
	}
	return false, false
}

func (m tuiModel) View() string {
	snap := m.session.Snapshot()
	t := m.theme
	var b strings.Builder

	b.WriteString(t.Header.Render("ragconsole") + "  ")
	b.WriteString(t.Dim.Render(fmt.Sprintf("model: %s · collection: %s · mode: %s",
		orNone(snap.ChatModel), orNone(snap.Collection), m.mode)))
	b.WriteString("\n\n")

	if !m.ready {
		b.WriteString(m.spin.View() + " loading models and collections...\n")
		return b.String()
	}

	if m.mode == modeCompare {
		b.WriteString(m.compareView(snap))
	} else {
		b.WriteString(m.chatView(snap))
	}

	if snap.HasError {
		hint := "(esc to dismiss)"
		if !snap.Error.Blocking {
			hint = "(try again, or esc to dismiss)"
		}
		b.WriteString("\n" + t.Error.Render("✗ "+snap.Error.Message) + " " + t.Dim.Render(hint) + "\n")
	}
	if snap.PendingKind != application.SelectionNone {
		b.WriteString("\n" + t.Prompt.Render(fmt.Sprintf(
			"Switch %s to %q? This clears the conversation. [y/n]", snap.PendingKind, snap.PendingValue)) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(t.Help.Render(tuiHelp))
	return b.String()
}

func (m tuiModel) chatView(snap application.Snapshot) string {
	t := m.theme
	var b strings.Builder
	if len(snap.Messages) == 0 {
		b.WriteString(t.Dim.Render("No messages yet.") + "\n")
	}
	for _, msg := range snap.Messages {
		if msg.IsUser {
			b.WriteString(t.User.Render("You:") + " " + msg.Text + "\n")
		} else {
			b.WriteString(t.Assistant.Render(snap.ChatModel+":") + " " + msg.Text + "\n")
		}
	}
	if snap.Loading {
		b.WriteString(m.spin.View() + " thinking...\n")
	}
	return b.String()
}

func (m tuiModel) compareView(snap application.Snapshot) string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.Dim.Render(fmt.Sprintf("candidates: %s · judge: %s · retrieval: %s · ragas: %s",
		orNone(strings.Join(snap.Candidates, ", ")), orNone(snap.Judge),
		onOff(snap.IncludeRetrieval), onOff(snap.IncludeRagas))))
	b.WriteString("\n")
	if snap.Judge == "" {
		b.WriteString(t.Dim.Render("judges: "+orNone(strings.Join(m.session.JudgeOptions(), ", "))) + "\n")
	}

	switch {
	case snap.Comparing:
		b.WriteString(m.spin.View() + " comparing models...\n")
	case snap.Result != nil:
		b.WriteString(m.resultView(snap.Result))
	}
	return b.String()
}

func (m tuiModel) resultView(r *domain.ComparisonResult) string {
	panels := r.Panels()
	if len(panels) == 0 {
		return m.theme.Dim.Render("The backend returned no answers.") + "\n"
	}

	width := 40
	sideBySide := false
	if m.width > 0 {
		per := m.width/len(panels) - 4
		if per >= 32 {
			width, sideBySide = per, true
		} else {
			width = max(m.width-4, 20)
		}
	}

	rendered := make([]string, 0, len(panels))
	for _, p := range panels {
		rendered = append(rendered, m.theme.Panel.Width(width).Render(m.panelBody(p)))
	}

	var out string
	if sideBySide {
		out = lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	} else {
		out = lipgloss.JoinVertical(lipgloss.Left, rendered...)
	}
	out += "\n"
	if r.Retrieval != nil {
		out += m.retrievalView(r.Retrieval)
	}
	return out
}

func (m tuiModel) panelBody(p domain.ModelPanel) string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render(p.Model) + "\n\n")
	b.WriteString(p.Answer + "\n")

	ms := p.Metrics
	if !p.HasMetrics() {
		if ms.Error != "" {
			b.WriteString("\n" + t.Error.Render("metrics unavailable: "+ms.Error) + "\n")
		}
		return b.String()
	}

	b.WriteString("\n")
	if ms.Overall != nil {
		b.WriteString(t.tier(domain.TierOf(ms.Overall)).Render("Overall "+percent(ms.Overall)) + "\n")
	}
	width := labelWidth(ms.Entries)
	m.writeEntries(&b, ms.Judge(), width)
	if ragas := ms.Ragas(); len(ragas) > 0 {
		b.WriteString(t.Dim.Render("RAGAS") + "\n")
		m.writeEntries(&b, ragas, width)
	}
	return b.String()
}

func (m tuiModel) writeEntries(b *strings.Builder, entries []domain.MetricEntry, width int) {
	t := m.theme
	for _, e := range entries {
		b.WriteString(t.tier(e.Tier()).Render(entryLine(e, width)) + "\n")
		if e.Feedback != "" {
			b.WriteString(t.Dim.Render("  "+e.Feedback) + "\n")
		}
	}
}

func (m tuiModel) retrievalView(rm *domain.RetrievalMetrics) string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render(retrievalTitle(rm)) + "\n")
	if rm.Error != "" {
		b.WriteString(t.Error.Render("unavailable: "+rm.Error) + "\n")
		return b.String()
	}
	for _, c := range rm.Cards() {
		b.WriteString(fmt.Sprintf("%-18s %s\n", c.Label, t.tier(c.Tier()).Render(cardValue(c))))
	}
	if rm.Interpretation != "" {
		b.WriteString(t.Dim.Render(rm.Interpretation) + "\n")
	}
	return b.String()
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
