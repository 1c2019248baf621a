package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

// choiceRowSize is the number of buttons per keyboard row.
const choiceRowSize = 2

// prompt builds the question for the state s has just entered.
func (e *Engine) prompt(s *Session) Prompt {
	p := Prompt{Owner: s.Owner, Flow: s.Flow, State: s.State}
	d := s.Draft

	switch s.State {
	case AwaitingDate:
		p.Text = fmt.Sprintf("Enter the date (%s):", core.DisplayLayout(e.dateLayout))
	case AwaitingKind:
		p.Text = "Is it an expense or an income?"
		p.Choices = chunk([]string{core.Expense.Label(), core.Income.Label()}, choiceRowSize)
	case AwaitingCategory:
		p.Text = fmt.Sprintf("Select the %s category:", strings.ToLower(d.Kind.Label()))
		p.Choices = chunk(e.catalog.CategoryNames(d.Kind), choiceRowSize)
	case AwaitingSubcategory:
		cat := d.Category
		switch {
		case len(cat.Subcategories) == 0:
			p.Text = fmt.Sprintf("Type the subcategory for %s:", cat.Name)
		case cat.FreeText:
			p.Text = fmt.Sprintf("Select the subcategory for %s, or type your own:", cat.Name)
			p.Choices = chunk(cat.Subcategories, choiceRowSize)
		default:
			p.Text = fmt.Sprintf("Select the subcategory for %s:", cat.Name)
			p.Choices = chunk(cat.Subcategories, choiceRowSize)
		}
	case AwaitingAmount:
		p.Text = fmt.Sprintf("Enter the amount for %s - %s (e.g. 12.50):", d.Category.Name, d.Subcategory)
	case AwaitingDescription:
		p.Text = "Enter a description:"
	case AwaitingSelection:
		verb := "edit"
		if s.Flow == FlowDelete {
			verb = "delete"
		}
		p.Text = fmt.Sprintf("%ss on %s. Send the number of the one to %s:",
			d.Kind.Label(), d.Date.Format(e.dateLayout), verb)
		p.Entries = s.Selection
		p.Choices = chunk(indexLabels(len(s.Selection)), choiceRowSize)
	case AwaitingFieldChoice:
		p.Text = "What do you want to change?"
		p.Choices = chunk([]string{"Amount", "Description"}, choiceRowSize)
	case AwaitingNewValue:
		if s.Field == FieldAmount {
			p.Text = fmt.Sprintf("Enter the new amount (currently %s):", core.FormatAmount(s.Target.Amount))
		} else {
			p.Text = fmt.Sprintf("Enter the new description (currently %q):", s.Target.Description)
		}
	case AwaitingPeriod:
		p.Text = s.spec.period.text
		p.Choices = chunk(s.spec.period.choices, choiceRowSize)
	}
	return p
}

func indexLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

// chunk splits items into rows of at most size.
func chunk(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		rows = append(rows, items[start:end:end])
	}
	return rows
}
