package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/zxweb/zx/internal/call"
)

// CallView is the call overlay: contact, stage and a live duration clock.
type CallView struct {
	*tview.TextView
}

// NewCallView creates the overlay.
func NewCallView() *CallView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true).SetTitle(" Call ")
	return &CallView{TextView: tv}
}

// Update renders the current call state.
func (cv *CallView) Update(s *call.Session) {
	cv.Clear()

	contact := s.Contact()
	stage := s.Stage()

	var line string
	switch stage {
	case call.Dialing:
		line = fmt.Sprintf("Calling [::b]%s[-:-:-]...", contact.Name)
	case call.Ringing:
		line = fmt.Sprintf("[::b]%s[-:-:-] is calling  (a:answer  h:hang up)", contact.Name)
	case call.Active:
		line = fmt.Sprintf("[::b]%s[-:-:-]  %s", contact.Name, call.FormatDuration(s.Elapsed()))
	case call.Ended:
		line = "Call ended"
	case call.Failed:
		line = "[red]Call failed[-]"
	default:
		line = "No active call"
	}

	_, _ = fmt.Fprintf(cv, "\n\n%s", line)
}
