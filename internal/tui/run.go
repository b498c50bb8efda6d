package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/ledger-recon/internal/workflow"
)

// Run starts the interactive console and blocks until the operator quits.
func Run(ctx context.Context, machine *workflow.Machine) error {
	program := tea.NewProgram(
		New(machine),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
