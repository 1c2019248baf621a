package gateway

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoviieira/register-track-bot/internal/conversation"
	"github.com/diogoviieira/register-track-bot/internal/core"
)

func entry(id int64, cat, sub, amount, desc string) core.Entry {
	return core.Entry{
		ID:          id,
		Owner:       "U1",
		Kind:        core.Expense,
		OccurredOn:  core.NewDate(2025, 11, 15),
		Category:    cat,
		Subcategory: sub,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}
}

func TestRenderPrompt(t *testing.T) {
	r := NewRenderer("")

	msg := r.Render(conversation.Reply{Prompt: &conversation.Prompt{
		State:   conversation.AwaitingSelection,
		Text:    "Send the number of the one to delete:",
		Error:   "Choose a number between 1 and 2",
		Entries: []core.Entry{entry(1, "Lazer", "Coffees", "3.5", "espresso"), entry(2, "Home", "Rent", "800", "Home - Rent")},
		Choices: [][]string{{"1", "2"}},
	}})

	assert.Equal(t, "❌ Choose a number between 1 and 2\n\n"+
		"1. Lazer > Coffees: €3.50 - espresso\n"+
		"2. Home > Rent: €800.00 - Home - Rent\n\n"+
		"Send the number of the one to delete:", msg.Text)
	assert.Equal(t, [][]string{{"1", "2"}, {CancelChoice}}, msg.Choices)
}

func TestRenderPrompt_NoFlowHasNoCancel(t *testing.T) {
	msg := NewRenderer("").Render(conversation.Reply{Prompt: &conversation.Prompt{Text: "Send /add to start"}})
	assert.Equal(t, "Send /add to start", msg.Text)
	assert.Nil(t, msg.Choices)
}

func TestRenderResults(t *testing.T) {
	r := NewRenderer("")
	rent := entry(7, "Home", "Rent", "800", "Home - Rent")

	tests := []struct {
		name   string
		result conversation.Result
		want   []string
	}{
		{
			name:   "created",
			result: conversation.Result{Outcome: conversation.Success, Action: conversation.ActionCreated, Entry: &rent},
			want:   []string{"✅ Expense saved for 15/11/25!", "📋 Category: Home", "🏷️ Subcategory: Rent", "💵 Amount: €800.00"},
		},
		{
			name:   "deleted",
			result: conversation.Result{Outcome: conversation.Success, Action: conversation.ActionDeleted, Entry: &rent},
			want:   []string{"✅ Deleted expense:", "📝 Description: Home - Rent"},
		},
		{
			name:   "cancelled",
			result: conversation.Result{Outcome: conversation.Cancelled, Message: "Operation cancelled."},
			want:   []string{"❌ Operation cancelled."},
		},
		{
			name: "failure hides the cause",
			result: conversation.Result{Outcome: conversation.Failure, Failure: &conversation.FailureInfo{
				Reason: conversation.ReasonStorage, Message: "Could not reach the database.",
			}},
			want: []string{"❌ Could not reach the database."},
		},
		{
			name:   "no entries",
			result: conversation.Result{Outcome: conversation.Success, Action: conversation.ActionNoEntries, Title: "Expenses on 15/11/25"},
			want:   []string{"📭 Expenses on 15/11/25: nothing recorded."},
		},
		{
			name: "listing",
			result: conversation.Result{
				Outcome: conversation.Success, Action: conversation.ActionListed, Title: "Expenses on 15/11/25",
				Entries: []core.Entry{rent}, Total: decimal.NewFromInt(800),
			},
			want: []string{"📊 Expenses on 15/11/25:", "• Home > Rent: €800.00 - Home - Rent", "💰 Total: €800.00"},
		},
		{
			name: "summary",
			result: conversation.Result{
				Outcome: conversation.Success, Action: conversation.ActionSummary, Title: "Expenses Summary - Today",
				Totals: []core.CategoryTotal{{
					Category: "Lazer", Total: decimal.RequireFromString("23.5"), Count: 2,
					Subcategories: []core.SubcategoryTotal{
						{Subcategory: "Coffees", Total: decimal.RequireFromString("3.5"), Count: 1},
						{Subcategory: "Dining Out", Total: decimal.NewFromInt(20), Count: 1},
					},
				}},
				Total: decimal.RequireFromString("23.5"),
			},
			want: []string{
				"📈 Expenses Summary - Today:",
				"• Lazer: €23.50 (2)\n   Lazer > Coffees: €3.50\n   Lazer > Dining Out: €20.00\n",
				"💰 Total: €23.50",
			},
		},
		{
			name:   "help",
			result: conversation.Result{Outcome: conversation.Success, Action: conversation.ActionHelp, Title: "Available commands", Message: "/add - record"},
			want:   []string{"📖 Available commands:", "/add - record"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.result
			msg := r.Render(conversation.Reply{Result: &res})
			for _, w := range tt.want {
				assert.Contains(t, msg.Text, w)
			}
			assert.Nil(t, msg.Choices)
		})
	}
}

func TestRenderReport(t *testing.T) {
	r := NewRenderer("")
	long := entry(1, "Lazer", "Hobbies", "900", "a very long description of a guitar purchase")
	income := entry(2, "Incomes", "Salary", "2000", "Incomes - Salary")
	income.Kind = core.Income
	rep := core.NewReport("U1", core.MonthPeriod(2025, 11), []core.Entry{long}, []core.Entry{income})

	msg := r.Render(conversation.Reply{Result: &conversation.Result{
		Outcome: conversation.Success, Action: conversation.ActionReport,
		Title: "Financial Report - This Month", Report: &rep,
	}})

	assert.True(t, strings.HasPrefix(msg.Text, "📊 Financial Report - This Month\n01/11/25 - 30/11/25"))
	assert.Contains(t, msg.Text, "💵 Incomes: €2000.00")
	assert.Contains(t, msg.Text, "💸 Expenses: €900.00")
	assert.Contains(t, msg.Text, "⚖️ Balance: €1100.00")
	assert.Contains(t, msg.Text, "• Lazer: €900.00")
	assert.Contains(t, msg.Text, "15/11/25 Lazer > Hobbies €900.00 a very long description o...")
	assert.False(t, strings.HasSuffix(msg.Text, "\n"))

	empty := core.NewReport("U1", core.YearPeriod(2025), nil, nil)
	msg = r.Render(conversation.Reply{Result: &conversation.Result{
		Outcome: conversation.Success, Action: conversation.ActionReport,
		Title: "Financial Report - This Year", Report: &empty,
	}})
	assert.Equal(t, "📭 Financial Report - This Year: nothing recorded.", msg.Text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 25))
	assert.Equal(t, "ação...", truncate("açãozinha", 4))
	require.Equal(t, 28, len([]rune(truncate(strings.Repeat("x", 40), 25))))
}
