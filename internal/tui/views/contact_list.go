package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
	"github.com/zxweb/zx/internal/roster"
	"github.com/zxweb/zx/internal/tui/model"
)

// ContactList is the contact sidebar table.
type ContactList struct {
	*tview.Table
	rows       []model.ContactRow
	selectedFn func() (int, int)
}

// NewContactList creates the contact table.
func NewContactList() *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Contacts ")

	cl := &ContactList{Table: table}
	cl.selectedFn = table.GetSelection
	return cl
}

// Update refreshes the table with new rows.
func (cl *ContactList) Update(rows []model.ContactRow) {
	cl.rows = rows
	cl.Clear()

	cl.SetCell(0, 0, tview.NewTableCell(" Name").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, r := range rows {
		row := i + 1
		name := r.User.Name
		if r.Unread > 0 {
			name = fmt.Sprintf("* %s (%d)", name, r.Unread)
		}
		preview := r.Preview
		if r.User.Presence == roster.Typing {
			preview = "typing..."
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetMaxWidth(30).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+preview).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(r.When)).SetMaxWidth(12))
	}
}

// SelectedContact returns the id of the currently selected contact.
func (cl *ContactList) SelectedContact() string {
	row, _ := cl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.rows) {
		return cl.rows[idx].User.ID
	}
	return ""
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
