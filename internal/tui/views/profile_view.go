package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/roster"
)

// ProfileView shows the signed-in profile as an editable form (name,
// shareable id, about) above the call history.
type ProfileView struct {
	*tview.Flex
	form   *tview.Form
	log    *tview.TextView
	onSave func(name, id, about string)
}

// NewProfileView creates the profile page.
func NewProfileView() *ProfileView {
	pv := &ProfileView{Flex: tview.NewFlex().SetDirection(tview.FlexRow)}

	pv.form = tview.NewForm().
		AddInputField("Name", "", 30, nil, nil).
		AddInputField("ID", "", 30, nil, nil).
		AddInputField("About", "", 40, nil, nil).
		AddButton("Save", func() {
			if pv.onSave != nil {
				pv.onSave(pv.field(0), pv.field(1), pv.field(2))
			}
		})
	pv.form.SetBorder(true).SetTitle(" Profile ")

	pv.log = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	pv.log.SetBorder(true).SetTitle(" Calls ")

	pv.AddItem(pv.form, 11, 0, true)
	pv.AddItem(pv.log, 0, 1, false)
	return pv
}

// SetOnSave sets the callback for submitting profile edits.
func (pv *ProfileView) SetOnSave(fn func(name, id, about string)) {
	pv.onSave = fn
}

// Update fills the form from the profile and renders the call log.
func (pv *ProfileView) Update(self roster.User, contacts []roster.User, entries []call.Entry, theme string) {
	pv.form.GetFormItem(0).(*tview.InputField).SetText(self.Name)
	pv.form.GetFormItem(1).(*tview.InputField).SetText(self.ID)
	pv.form.GetFormItem(2).(*tview.InputField).SetText(self.About)

	pv.log.Clear()
	if self.Email != "" {
		_, _ = fmt.Fprintf(pv.log, " %s\n", self.Email)
	}
	if self.Phone != "" {
		_, _ = fmt.Fprintf(pv.log, " %s\n", self.Phone)
	}
	_, _ = fmt.Fprintf(pv.log, " Theme: %s\n\n", theme)

	if len(entries) == 0 {
		_, _ = fmt.Fprint(pv.log, " [::d]No calls yet[-:-:-]\n")
	}
	for _, e := range entries {
		name := e.ContactID
		for _, c := range contacts {
			if c.ID == e.ContactID {
				name = c.Name
				break
			}
		}
		dur := call.FormatDuration(e.Duration)
		if dur != "" {
			dur = "  " + dur
		}
		color := ""
		if e.Direction == call.Missed {
			color = "[red]"
		}
		_, _ = fmt.Fprintf(pv.log, " %s%-9s[-] %s  %s%s\n",
			color, e.Direction, e.At.Format("01/02 15:04"), name, dur)
	}
}

func (pv *ProfileView) field(i int) string {
	return pv.form.GetFormItem(i).(*tview.InputField).GetText()
}
