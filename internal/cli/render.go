package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/reconcile"
	"github.com/charmbracelet/lipgloss"
)

// RenderPlan draws the mutations a run is about to issue.
func RenderPlan(plan *reconcile.Plan, cfg reconcile.Config) string {
	s := plan.Summary()

	summary := strings.Join([]string{
		fmt.Sprintf("  • Accounts reconciled: %d", len(plan.Accounts)),
		fmt.Sprintf("  • Voided pairs dropped: %d", s.Voided/2),
		fmt.Sprintf("  • Still pending: %d", s.StillPending),
		fmt.Sprintf("  • Changed pending dropped: %d", s.ChangedPending),
		fmt.Sprintf("  • Posted replacements: %d", s.Posted),
		fmt.Sprintf("  • Stale flagged / deleted: %d / %d", s.StaleFlagged, s.StaleDeleted),
		fmt.Sprintf("  • To create: %d", s.Create),
	}, "\n")

	sections := []string{summary}

	if len(plan.SkippedAccounts) > 0 {
		sections = append(sections, StyleWarning("Feed accounts with no open ledger account: "+strings.Join(plan.SkippedAccounts, ", ")))
	}

	if len(plan.Stale) > 0 {
		rows := make([]string, 0, len(plan.Stale))
		for _, a := range plan.Stale {
			t := a.Transaction
			icon, verb := DeleteIcon, "delete"
			if a.Flag {
				icon, verb = FlagIcon, "flag"
			}
			rows = append(rows, row(icon+" "+verb, &cfg, t.AccountName, t.Date, t.PayeeName, t.Amount))
		}
		sections = append(sections, section("Stale pending", rows))
	}

	if len(plan.Posted) > 0 {
		rows := make([]string, 0, len(plan.Posted))
		for _, t := range plan.Posted {
			rows = append(rows, row(DeleteIcon+" replace", &cfg, t.AccountName, t.Date, t.PayeeName, t.Amount))
		}
		sections = append(sections, section("Pending now posted", rows))
	}

	if len(plan.Create) > 0 {
		names := accountNames(plan.Accounts)
		rows := make([]string, 0, len(plan.Create))
		for _, c := range plan.Create {
			kind := "posted"
			if c.Cleared == model.Uncleared {
				kind = "pending"
			}
			rows = append(rows, row(CreateIcon+" "+kind, &cfg, names[c.AccountID], c.Date, c.PayeeName, c.Amount))
		}
		sections = append(sections, section("New transactions", rows))
	}

	title := "Reconciliation Plan"
	if plan.IsEmpty() {
		sections = append(sections, StyleSuccess(SuccessIcon+" Ledger already matches the feed"))
	}

	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// RenderReport summarizes what Apply did.
func RenderReport(report *reconcile.ApplyReport, dryRun bool) string {
	lines := []string{
		fmt.Sprintf("  • Flagged stale: %d", report.Count(model.MutationFlagStale)),
		fmt.Sprintf("  • Deleted stale: %d", report.Count(model.MutationDeleteStale)),
		fmt.Sprintf("  • Replaced posted: %d", report.Count(model.MutationDeletePosted)),
		fmt.Sprintf("  • Created: %d", report.Count(model.MutationCreate)),
	}
	if len(report.Duplicates) > 0 {
		lines = append(lines, fmt.Sprintf("  • Skipped as duplicates: %d", len(report.Duplicates)))
	}

	var status string
	switch {
	case dryRun:
		status = FormatInfo("Dry run: the ledger was not changed")
	case report.FailureCount() > 0:
		status = FormatError(fmt.Sprintf("%d ledger calls failed", report.FailureCount()))
		for _, err := range report.Failures {
			lines = append(lines, StyleError("    "+err.Error()))
		}
	default:
		status = FormatSuccess("Ledger updated")
	}

	return RenderBox("Sync Complete", lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n"), "", status))
}

// RenderRuns draws the journal history table.
func RenderRuns(runs []model.RunRecord) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	header := TableHeaderStyle.Render(fmt.Sprintf("%-36s  %-16s  %-9s  %7s  %7s  %7s  %8s",
		"RUN", "STARTED", "SOURCE", "CREATED", "STALE", "POSTED", "FAILURES"))

	rows := []string{header}
	for _, r := range runs {
		line := fmt.Sprintf("%-36s  %-16s  %-9s  %7d  %7d  %7d  %8d",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Source,
			r.Created, r.StaleFlagged+r.StaleDeleted, r.Posted, r.Failures)
		switch {
		case r.Failures > 0:
			line = StyleError(line)
		case r.DryRun:
			line = StyleSubtle(line + "  (dry run)")
		}
		rows = append(rows, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RenderMutations lists one run's mutations in application order.
func RenderMutations(run model.RunRecord, cfg reconcile.Config) string {
	if len(run.Mutations) == 0 {
		return RenderBox("Run "+run.ID, FormatInfo("No mutations"))
	}

	rows := make([]string, 0, len(run.Mutations))
	for _, m := range run.Mutations {
		icon := SuccessIcon
		if m.Failed() {
			icon = ErrorIcon
		}
		line := row(icon+" "+string(m.Kind), &cfg, m.ImportID, m.Date, m.PayeeName, m.Amount)
		if m.Failed() {
			line = StyleError(line + "  " + m.Error)
		}
		rows = append(rows, line)
	}

	return RenderBox("Run "+run.ID, lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// AccountLink pairs a feed account with the ledger account of the same name.
type AccountLink struct {
	FeedName   string
	LedgerName string
	LedgerID   string
	Closed     bool
}

// Linked reports whether the feed account reconciles into the ledger.
func (l AccountLink) Linked() bool {
	return l.LedgerID != ""
}

// LinkAccounts matches feed account names to ledger accounts. Ledger
// accounts with no feed are listed too.
func LinkAccounts(feeds []model.FeedAccount, accounts []model.Account) []AccountLink {
	byName := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		if a.Deleted {
			continue
		}
		byName[a.Name] = a
	}

	seen := make(map[string]bool, len(feeds))
	links := make([]AccountLink, 0, len(feeds)+len(accounts))
	for _, f := range feeds {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		link := AccountLink{FeedName: f.Name}
		if a, ok := byName[f.Name]; ok {
			link.LedgerName = a.Name
			link.LedgerID = a.ID
			link.Closed = a.Closed
		}
		links = append(links, link)
	}

	for _, a := range accounts {
		if a.Deleted || seen[a.Name] {
			continue
		}
		links = append(links, AccountLink{LedgerName: a.Name, LedgerID: a.ID, Closed: a.Closed})
	}

	return links
}

// RenderAccounts draws the feed-to-ledger link table.
func RenderAccounts(links []AccountLink) string {
	header := TableHeaderStyle.Render(fmt.Sprintf("%-30s  %-30s  %s", "FEED", "LEDGER", "STATUS"))
	rows := []string{header}

	for _, l := range links {
		var status string
		switch {
		case l.FeedName == "":
			status = StyleSubtle("no feed")
		case l.Linked() && l.Closed:
			status = StyleWarning(WarningIcon + " linked, ledger account closed")
		case l.Linked():
			status = StyleSuccess(SuccessIcon + " linked")
		default:
			status = StyleError(ErrorIcon + " no ledger account")
		}
		rows = append(rows, fmt.Sprintf("%-30s  %-30s  %s", dash(l.FeedName), dash(l.LedgerName), status))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func section(title string, rows []string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		BoldStyle.Render(title),
		strings.Join(rows, "\n"),
	)
}

func row(action string, cfg *reconcile.Config, account string, date time.Time, payee string, amount int64) string {
	return TableCellStyle.Render(fmt.Sprintf("  %-12s", action)) +
		TableCellStyle.Render(fmt.Sprintf("%-20s", account)) +
		TableCellStyle.Render(date.Format(model.DateLayout)) +
		TableCellStyle.Render(fmt.Sprintf("%-28s", payee)) +
		AmountStyle.Render(cfg.FormatAmount(amount))
}

func accountNames(accounts []model.Account) map[string]string {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
