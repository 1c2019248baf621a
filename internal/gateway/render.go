package gateway

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/diogoviieira/register-track-bot/internal/conversation"
	"github.com/diogoviieira/register-track-bot/internal/core"
)

// reportDescriptionLen bounds descriptions in report detail lines.
const reportDescriptionLen = 25

// CancelChoice is appended to the keyboard of every prompt inside a flow.
const CancelChoice = "/cancel"

// Message is a rendered reply: chat text plus optional keyboard rows.
type Message struct {
	Text    string
	Choices [][]string
}

// Renderer formats engine replies as chat text.
type Renderer struct {
	dateLayout string
}

func NewRenderer(dateLayout string) Renderer {
	if dateLayout == "" {
		dateLayout = core.DefaultDateLayout
	}
	return Renderer{dateLayout: dateLayout}
}

// Render formats a reply. A reply carries either a prompt or a result.
func (r Renderer) Render(reply conversation.Reply) Message {
	switch {
	case reply.Prompt != nil:
		return r.prompt(reply.Prompt)
	case reply.Result != nil:
		return Message{Text: r.result(reply.Result)}
	default:
		return Message{Text: "❌ Something went wrong. Please start again."}
	}
}

func (r Renderer) prompt(p *conversation.Prompt) Message {
	var b strings.Builder
	if p.Error != "" {
		fmt.Fprintf(&b, "❌ %s\n\n", p.Error)
	}
	for i, e := range p.Entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entryLine(e))
	}
	if len(p.Entries) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(p.Text)

	choices := p.Choices
	if p.State != "" {
		choices = append(append([][]string(nil), p.Choices...), []string{CancelChoice})
	}
	return Message{Text: b.String(), Choices: choices}
}

func (r Renderer) result(res *conversation.Result) string {
	switch res.Outcome {
	case conversation.Cancelled:
		return "❌ " + res.Message
	case conversation.Failure:
		return "❌ " + res.Failure.Message
	}

	switch res.Action {
	case conversation.ActionCreated:
		return fmt.Sprintf("✅ %s saved for %s!\n\n%s\n\nUse /add to add another one or /view to see today's entries.",
			res.Entry.Kind.Label(), res.Entry.OccurredOn.Format(r.dateLayout), entryBlock(*res.Entry))
	case conversation.ActionUpdated:
		return fmt.Sprintf("✅ %s updated:\n\n%s", res.Entry.Kind.Label(), entryBlock(*res.Entry))
	case conversation.ActionDeleted:
		return fmt.Sprintf("✅ Deleted %s:\n\n%s", strings.ToLower(res.Entry.Kind.Label()), entryBlock(*res.Entry))
	case conversation.ActionNoEntries:
		return nothingRecorded(res.Title)
	case conversation.ActionListed:
		return r.listing(res)
	case conversation.ActionSummary:
		return r.summary(res)
	case conversation.ActionReport:
		return r.report(res.Title, res.Report)
	case conversation.ActionHelp:
		return "📖 " + res.Title + ":\n\n" + res.Message
	default:
		return res.Message
	}
}

func (r Renderer) listing(res *conversation.Result) string {
	if len(res.Entries) == 0 {
		return nothingRecorded(res.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s:\n\n", res.Title)
	for _, e := range res.Entries {
		fmt.Fprintf(&b, "• %s\n", entryLine(e))
	}
	fmt.Fprintf(&b, "\n💰 Total: %s", core.FormatAmount(res.Total))
	return b.String()
}

func (r Renderer) summary(res *conversation.Result) string {
	if len(res.Totals) == 0 {
		return nothingRecorded(res.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s:\n\n", res.Title)
	for _, t := range res.Totals {
		fmt.Fprintf(&b, "• %s: %s (%d)\n", t.Category, core.FormatAmount(t.Total), t.Count)
		for _, sub := range t.Subcategories {
			fmt.Fprintf(&b, "   %s > %s: %s\n", t.Category, sub.Subcategory, core.FormatAmount(sub.Total))
		}
	}
	fmt.Fprintf(&b, "\n💰 Total: %s", core.FormatAmount(res.Total))
	return b.String()
}

func (r Renderer) report(title string, rep *core.Report) string {
	if rep == nil || len(rep.Expenses) == 0 && len(rep.Incomes) == 0 {
		return nothingRecorded(title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n%s - %s\n\n", title,
		rep.Period.Start.Format(r.dateLayout), rep.Period.End.Format(r.dateLayout))
	fmt.Fprintf(&b, "💵 Incomes: %s\n", core.FormatAmount(rep.TotalIncomes))
	fmt.Fprintf(&b, "💸 Expenses: %s\n", core.FormatAmount(rep.TotalExpenses))
	fmt.Fprintf(&b, "⚖️ Balance: %s\n", core.FormatAmount(rep.Balance()))

	if len(rep.ByCategory) > 0 {
		b.WriteString("\nExpenses by category:\n")
		for _, t := range rep.ByCategory {
			fmt.Fprintf(&b, "• %s: %s\n", t.Category, core.FormatAmount(t.Total))
		}
	}
	r.details(&b, "Expenses", rep.Expenses)
	r.details(&b, "Incomes", rep.Incomes)
	return strings.TrimRight(b.String(), "\n")
}

func (r Renderer) details(b *strings.Builder, heading string, entries []core.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, e := range entries {
		fmt.Fprintf(b, "%s %s > %s %s %s\n", e.OccurredOn.Format(r.dateLayout), e.Category, e.Subcategory,
			core.FormatAmount(e.Amount), truncate(e.Description, reportDescriptionLen))
	}
}

func nothingRecorded(title string) string {
	return "📭 " + title + ": nothing recorded."
}

func entryLine(e core.Entry) string {
	return fmt.Sprintf("%s > %s: %s - %s", e.Category, e.Subcategory, core.FormatAmount(e.Amount), e.Description)
}

func entryBlock(e core.Entry) string {
	return fmt.Sprintf("📋 Category: %s\n🏷️ Subcategory: %s\n💵 Amount: %s\n📝 Description: %s",
		e.Category, e.Subcategory, core.FormatAmount(e.Amount), e.Description)
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
