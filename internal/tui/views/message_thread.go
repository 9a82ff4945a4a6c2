package views

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/zxweb/zx/internal/chat"
)

// MessageThread displays the active conversation as selectable rows, so
// individual messages can be targeted for deletion.
type MessageThread struct {
	*tview.Table
	msgs       []chat.Message
	selectedFn func() (int, int)
}

// NewMessageThread creates the message table.
func NewMessageThread() *MessageThread {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Messages ")

	mt := &MessageThread{Table: table}
	mt.selectedFn = table.GetSelection
	return mt
}

// SetChatName updates the title with the peer's name and presence.
func (mt *MessageThread) SetChatName(name, presence string) {
	title := fmt.Sprintf(" %s ", name)
	if presence != "" {
		title = fmt.Sprintf(" %s [::d](%s)[-:-:-] ", name, presence)
	}
	mt.SetTitle(title)
}

// Update refreshes the thread with new messages, oldest first.
func (mt *MessageThread) Update(msgs []chat.Message) {
	mt.msgs = msgs
	mt.Clear()

	for i := range msgs {
		m := &msgs[i]
		sender := m.SenderID
		if m.FromSelf() {
			sender = "You"
		}

		meta := m.SentAt.Format("15:04")
		if m.FromSelf() {
			meta += " " + statusTicks(m.Status)
		}

		body := m.Text
		switch {
		case m.Deleted:
			body = "[::d]This message was deleted[-:-:-]"
		case m.AudioRef != "":
			body = fmt.Sprintf("[::b]voice[-:-:-] %s", m.AudioRef)
		}

		mt.SetCell(i, 0, tview.NewTableCell(fmt.Sprintf(" [::b]%s[-:-:-]", sender)).SetMaxWidth(16))
		mt.SetCell(i, 1, tview.NewTableCell(" "+body).SetExpansion(1))
		mt.SetCell(i, 2, tview.NewTableCell(" [::d]"+meta+"[-:-:-]").SetMaxWidth(14))
	}

	if len(msgs) > 0 {
		mt.Select(len(msgs)-1, 0)
	}
	mt.ScrollToEnd()
}

// SelectedMessageID returns the id of the currently selected message.
func (mt *MessageThread) SelectedMessageID() string {
	row, _ := mt.selectedFn()
	if row >= 0 && row < len(mt.msgs) {
		return mt.msgs[row].ID
	}
	return ""
}

func statusTicks(s chat.Status) string {
	switch s {
	case chat.StatusDelivered:
		return "✓✓"
	case chat.StatusRead:
		return "[blue]✓✓[-]"
	default:
		return "✓"
	}
}
