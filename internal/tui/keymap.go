package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageNext key.Binding
	PagePrev key.Binding

	// Run control
	Start  key.Binding
	Cancel key.Binding

	// Result views
	Matched    key.Binding
	Unmatched  key.Binding
	Exceptions key.Binding
	Export     key.Binding
	History    key.Binding

	// Decisions
	Approve key.Binding
	Reject  key.Binding

	// Options
	ToggleSimulation key.Binding
	ToggleAI         key.Binding
	CycleBank        key.Binding
	Download         key.Binding

	// Application
	Select    key.Binding
	Back      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		PageNext: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/→", "next page"),
		),
		PagePrev: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", "previous page"),
		),

		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start reconciliation"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel run"),
		),

		Matched: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "matched"),
		),
		Unmatched: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unmatched"),
		),
		Exceptions: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "exceptions"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export"),
		),
		History: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "history"),
		),

		Approve: key.NewBinding(
			key.WithKeys("a", "y"),
			key.WithHelp("a/y", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reject"),
		),

		ToggleSimulation: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle simulation"),
		),
		ToggleAI: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle AI matching"),
		),
		CycleBank: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "cycle bank filter"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download report"),
		),

		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
	}
}
