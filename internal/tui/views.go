package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ledger-recon/internal/aggregate"
	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/session"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.state().View {
	case session.ViewMain:
		body = m.renderMain()
	case session.ViewProcessing:
		body = m.renderProcessing()
	case session.ViewMatched:
		body = m.renderMatched()
	case session.ViewUnmatched:
		body = m.renderUnmatched()
	case session.ViewExceptions:
		body = m.renderExceptions()
	case session.ViewExport:
		body = m.renderExport()
	case session.ViewApproval:
		body = m.renderApproval()
	case session.ViewHistory:
		body = m.renderHistory()
	case session.ViewHistoryDetail:
		body = m.renderHistoryDetail()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderMessages())
}

func (m Model) renderMessages() string {
	state := m.state()
	var lines []string
	if state.LastError != "" {
		lines = append(lines, cli.FormatError(state.LastError))
	}
	if state.Notice != "" {
		lines = append(lines, cli.FormatInfo(state.Notice))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n")
}

func (m Model) periodLine() string {
	state := m.state()
	period := model.Period{
		StartDate: state.StartDate.Format("2006-01-02"),
		EndDate:   state.EndDate.Format("2006-01-02"),
	}
	mode := "live"
	if state.Simulation {
		mode = "simulation"
	}
	ai := "off"
	if state.EnableAI {
		ai = "on"
	}
	return fmt.Sprintf("Period: %s   Mode: %s   AI matching: %s", period.Display(), mode, ai)
}

func (m Model) renderMain() string {
	state := m.state()
	summary := m.machine.Summary()

	var b strings.Builder
	b.WriteString(cli.FormatTitle(cli.LedgerIcon + " Bank Reconciliation"))
	b.WriteString("\n\n")
	b.WriteString(m.periodLine())
	b.WriteString("\n")

	if state.HasRun() && state.Status != nil {
		b.WriteString(fmt.Sprintf("\nRun %s  [%s]\n", state.Run.RecID, state.Status.Status))
		b.WriteString(fmt.Sprintf("  Matched:    %d\n", summary.MatchedCount))
		b.WriteString(fmt.Sprintf("  Exceptions: %d\n", summary.ExceptionsCount))
		b.WriteString(fmt.Sprintf("  Unmatched:  %d bank / %d ledger\n",
			summary.UnmatchedCount, len(summary.UnmatchedGl)))
	} else {
		b.WriteString(cli.SubtleStyle.Render("\nNo reconciliation running.\n"))
	}

	b.WriteString(cli.SubtleStyle.Render(
		"\ns start · m matched · u unmatched · e exceptions · x export · h history · t sim · i ai · q quit"))
	return b.String()
}

func (m Model) renderProcessing() string {
	state := m.state()
	recID := ""
	if state.Run != nil {
		recID = state.Run.RecID
	}

	status := "working"
	if state.Status != nil {
		status = string(state.Status.Status)
	}

	return fmt.Sprintf("%s\n\n%s Reconciling %s (%s)...\n\n%s",
		cli.FormatTitle("Processing"),
		m.spinner.View(),
		recID,
		status,
		cli.SubtleStyle.Render("c cancel"))
}

func (m Model) renderMatched() string {
	state := m.state()
	summary := m.machine.Summary()
	visible := summary.FilterMatched(state.BankFilter)

	var b strings.Builder
	title := "Matched Transactions"
	if state.BankFilter != "" {
		title += " — " + state.BankFilter
	}
	b.WriteString(cli.FormatTitle(title))
	b.WriteString("\n\n")

	page := session.PageOf(&state.MatchedPager, visible)
	if len(page) == 0 {
		b.WriteString(cli.SubtleStyle.Render("Nothing matched yet.\n"))
	}
	for _, rec := range page {
		badge := cli.AutoBadgeStyle.Render("AUTO")
		if rec.MatchType == aggregate.MatchManual {
			badge = cli.ManualBadgeStyle.Render("MANUAL")
		}
		b.WriteString(fmt.Sprintf("%s %s  %-10s %-30s %12s  %s  %s\n",
			badge,
			rec.Bank,
			model.DisplayDate(rec.BankTxn.Date),
			truncate(rec.BankTxn.DisplayDescription(), 30),
			cli.FormatCurrency(rec.BankTxn.Amount),
			rec.GlTxn.TransactionID,
			cli.FormatConfidence(rec.Confidence)))
	}

	b.WriteString(m.pageFooter(state.MatchedPager.Page(len(visible)), session.PageCount(len(visible))))
	b.WriteString(cli.SubtleStyle.Render("\nn/p page · b bank filter · esc back"))
	return b.String()
}

func (m Model) renderUnmatched() string {
	state := m.state()
	summary := m.machine.Summary()

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Unmatched Transactions"))
	b.WriteString("\n\n")
	b.WriteString(cli.BoldStyle.Render(cli.BankIcon + " Bank"))
	b.WriteString("\n")

	bankPage := session.PageOf(&state.UnmatchedBankPager, summary.UnmatchedBank)
	if len(bankPage) == 0 {
		b.WriteString(cli.SubtleStyle.Render("  none\n"))
	}
	for _, rec := range bankPage {
		b.WriteString(fmt.Sprintf("  %s  %-10s %-30s %12s  %s\n",
			rec.Bank,
			model.DisplayDate(rec.Txn.Date),
			truncate(rec.Txn.DisplayDescription(), 30),
			cli.FormatCurrency(rec.Txn.Amount),
			rec.Txn.DisplayType()))
	}

	b.WriteString("\n")
	b.WriteString(cli.BoldStyle.Render(cli.LedgerIcon + " Ledger"))
	b.WriteString("\n")

	glPage := session.PageOf(&state.UnmatchedGlPager, summary.UnmatchedGl)
	if len(glPage) == 0 {
		b.WriteString(cli.SubtleStyle.Render("  none\n"))
	}
	for _, gl := range glPage {
		b.WriteString(fmt.Sprintf("  %-10s %-30s %-20s %12s\n",
			model.DisplayDate(gl.Date),
			truncate(gl.Description, 30),
			truncate(gl.Account, 20),
			cli.FormatCurrency(gl.ResolvedAmount())))
	}

	b.WriteString(m.pageFooter(state.UnmatchedBankPager.Page(len(summary.UnmatchedBank)),
		session.PageCount(max(len(summary.UnmatchedBank), len(summary.UnmatchedGl)))))
	b.WriteString(cli.SubtleStyle.Render("\nn/p page · esc back"))
	return b.String()
}

func (m Model) renderExceptions() string {
	exceptions := m.machine.Summary().Exceptions

	var b strings.Builder
	b.WriteString(cli.FormatTitle(fmt.Sprintf("Exceptions (%d)", len(exceptions))))
	b.WriteString("\n\n")

	if len(exceptions) == 0 {
		b.WriteString(cli.FormatSuccess("All exceptions decided."))
		b.WriteString("\n")
	}

	for i, exc := range exceptions {
		cursor := "  "
		if i == m.selected {
			cursor = cli.BoldStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s  %-10s %-30s %12s  %s\n",
			cursor,
			exc.Bank,
			model.DisplayDate(exc.BankTransaction.Date),
			truncate(exc.BankTransaction.DisplayDescription(), 30),
			cli.FormatCurrency(exc.BankTransaction.Amount),
			cli.FormatConfidence(exc.Confidence)))

		if i == m.selected && exc.AIReasoning != "" {
			b.WriteString(cli.SubtleStyle.Render("    " + truncate(exc.AIReasoning, 70) + "\n"))
		}
	}

	b.WriteString(cli.SubtleStyle.Render("\nj/k move · a approve · r reject · esc back"))
	return b.String()
}

func (m Model) renderExport() string {
	state := m.state()
	summary := m.machine.Summary()

	var b strings.Builder
	b.WriteString(cli.FormatTitle(cli.ChartIcon + " Export & Confirmation"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Status: %s\n", statusLabel(state.Status)))
	b.WriteString(fmt.Sprintf("Matched %d, exceptions %d, unmatched %d bank / %d ledger.\n",
		summary.MatchedCount, summary.ExceptionsCount,
		summary.UnmatchedCount, len(summary.UnmatchedGl)))

	if m.exportNote != "" {
		b.WriteString("\n" + m.exportNote + "\n")
	}

	b.WriteString(cli.SubtleStyle.Render("\nd download report · a confirm · r reject · esc back"))
	return b.String()
}

func (m Model) renderApproval() string {
	state := m.state()

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Final Approval"))
	b.WriteString("\n\n")

	if state.Status != nil && state.Status.Statement != nil {
		st := state.Status.Statement
		balanced := cli.FormatError("NOT BALANCED")
		if st.IsBalanced {
			balanced = cli.FormatSuccess("BALANCED")
		}
		b.WriteString(fmt.Sprintf("Starting balance %s\n", cli.FormatCurrency(st.StartingBalance)))
		b.WriteString(fmt.Sprintf("Ending balance   %s\n", cli.FormatCurrency(st.EndingBalance)))
		b.WriteString(fmt.Sprintf("Net change       %s\n", cli.FormatCurrency(st.NetChange)))
		b.WriteString(fmt.Sprintf("Variance         %s   %s\n", cli.FormatCurrency(st.Variance), balanced))
		for _, adj := range st.Adjustments {
			b.WriteString(fmt.Sprintf("  adj: %-30s %12s\n", truncate(adj.Description, 30), cli.FormatCurrency(adj.Amount)))
		}
	} else {
		b.WriteString(cli.SubtleStyle.Render("No statement provided by the service.\n"))
	}

	b.WriteString(cli.SubtleStyle.Render("\na approve · r reject · esc back"))
	return b.String()
}

func (m Model) renderHistory() string {
	state := m.state()

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Run History"))
	b.WriteString("\n\n")

	if len(state.History) == 0 {
		b.WriteString(cli.SubtleStyle.Render("Loading history...\n"))
	}

	lo, hi := state.HistoryPager.Bounds(len(state.History))
	for i := lo; i < hi; i++ {
		rec := state.History[i]
		cursor := "  "
		if i == m.selected {
			cursor = cli.BoldStyle.Render("> ")
		}
		sim := ""
		if rec.Simulation {
			sim = " (sim)"
		}
		b.WriteString(fmt.Sprintf("%s%-8s %-10s → %-10s  %-22s%s\n",
			cursor,
			rec.RecID,
			model.DisplayDate(rec.PeriodStart),
			model.DisplayDate(rec.PeriodEnd),
			rec.Status,
			sim))
	}

	b.WriteString(m.pageFooter(state.HistoryPager.Page(len(state.History)), session.PageCount(len(state.History))))
	b.WriteString(cli.SubtleStyle.Render("\nj/k move · n/p page · enter detail · esc back"))
	return b.String()
}

func (m Model) renderHistoryDetail() string {
	state := m.state()
	rec := state.SelectedHistory
	if rec == nil {
		return cli.FormatError("No run selected.")
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Run " + rec.RecID))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Period: %s\n", model.Period{StartDate: rec.PeriodStart, EndDate: rec.PeriodEnd}.Display()))
	b.WriteString(fmt.Sprintf("Status: %s\n", rec.Status))

	detail := state.HistoryDetail
	if detail == nil {
		b.WriteString(cli.SubtleStyle.Render("\nNo stored results for this run.\n"))
	} else {
		summary := aggregate.FromStatus(detail)
		b.WriteString(fmt.Sprintf("\nMatched %d, exceptions %d, unmatched %d bank / %d ledger.\n",
			summary.MatchedCount, summary.ExceptionsCount,
			summary.UnmatchedCount, len(summary.UnmatchedGl)))
	}

	b.WriteString(cli.SubtleStyle.Render("\nesc back"))
	return b.String()
}

func (m Model) pageFooter(page, pages int) string {
	return cli.SubtleStyle.Render(fmt.Sprintf("\nPage %d/%d", page, pages))
}

func statusLabel(status *model.StatusPayload) string {
	if status == nil {
		return "unknown"
	}
	return string(status.Status)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
