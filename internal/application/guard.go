package application

// SelectionGuard protects an active selection from silently changing under
// a conversation. When the conversation is empty a change applies at once;
// otherwise it is staged behind a confirmation prompt.
//
// The pending value is unexported and only reachable through Pending, which
// reports it solely while the prompt is open. SelectionGuard is not safe for
// concurrent use; Session serializes access.
type SelectionGuard struct {
	active     string
	pending    string
	promptOpen bool
}

// NewSelectionGuard returns a guard with the given active value.
func NewSelectionGuard(active string) SelectionGuard {
	return SelectionGuard{active: active}
}

// Active returns the active value.
func (g *SelectionGuard) Active() string { return g.active }

// PromptOpen reports whether a change awaits confirmation.
func (g *SelectionGuard) PromptOpen() bool { return g.promptOpen }

// Pending returns the staged value while the prompt is open.
func (g *SelectionGuard) Pending() (string, bool) {
	if !g.promptOpen {
		return "", false
	}
	return g.pending, true
}

// Request asks to make value active. It returns true when the change was
// applied immediately, and false when it was staged or was a no-op.
// Requesting the active value closes any open prompt.
func (g *SelectionGuard) Request(value string, conversationEmpty bool) bool {
	if value == g.active {
		g.Cancel()
		return false
	}
	if conversationEmpty {
		g.active = value
		g.Cancel()
		return true
	}
	g.pending = value
	g.promptOpen = true
	return false
}

// Confirm applies the staged value. ok is false when no prompt was open.
// The caller is responsible for clearing the conversation.
func (g *SelectionGuard) Confirm() (value string, ok bool) {
	if !g.promptOpen {
		return "", false
	}
	g.active = g.pending
	g.Cancel()
	return g.active, true
}

// Cancel discards the staged value.
func (g *SelectionGuard) Cancel() {
	g.pending = ""
	g.promptOpen = false
}

// Reset forces value active without a prompt. It is used when catalogs load.
func (g *SelectionGuard) Reset(value string) {
	g.active = value
	g.Cancel()
}
