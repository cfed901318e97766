package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionGuard(t *testing.T) {
	tests := []struct {
		name           string
		run            func(t *testing.T, g *SelectionGuard)
		wantActive     string
		wantPending    string
		wantPromptOpen bool
	}{
		{
			name:       "empty conversation applies immediately",
			run:        func(t *testing.T, g *SelectionGuard) { assert.True(t, g.Request("y", true)) },
			wantActive: "y",
		},
		{
			name:           "non-empty conversation stages the value",
			run:            func(t *testing.T, g *SelectionGuard) { assert.False(t, g.Request("y", false)) },
			wantActive:     "x",
			wantPending:    "y",
			wantPromptOpen: true,
		},
		{
			name: "confirm applies the staged value",
			run: func(t *testing.T, g *SelectionGuard) {
				g.Request("y", false)
				v, ok := g.Confirm()
				assert.True(t, ok)
				assert.Equal(t, "y", v)
			},
			wantActive: "y",
		},
		{
			name: "cancel discards the staged value",
			run: func(t *testing.T, g *SelectionGuard) {
				g.Request("y", false)
				g.Cancel()
			},
			wantActive: "x",
		},
		{
			name: "confirm without prompt does nothing",
			run: func(t *testing.T, g *SelectionGuard) {
				_, ok := g.Confirm()
				assert.False(t, ok)
			},
			wantActive: "x",
		},
		{
			name: "requesting the active value closes the prompt",
			run: func(t *testing.T, g *SelectionGuard) {
				g.Request("y", false)
				assert.False(t, g.Request("x", false))
			},
			wantActive: "x",
		},
		{
			name: "a later request replaces the staged value",
			run: func(t *testing.T, g *SelectionGuard) {
				g.Request("y", false)
				g.Request("z", false)
			},
			wantActive:     "x",
			wantPending:    "z",
			wantPromptOpen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewSelectionGuard("x")
			tt.run(t, &g)

			assert.Equal(t, tt.wantActive, g.Active())
			assert.Equal(t, tt.wantPromptOpen, g.PromptOpen())
			pending, ok := g.Pending()
			assert.Equal(t, tt.wantPromptOpen, ok)
			assert.Equal(t, tt.wantPending, pending)
		})
	}
}
