package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/roster"
	"github.com/zxweb/zx/internal/tui/keys"
	"github.com/zxweb/zx/internal/tui/model"
	"github.com/zxweb/zx/internal/tui/views"
	"go.uber.org/zap"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	vm       *model.ViewModel
	bus      *bus.Bus
	logger   *zap.Logger
	registry *keys.Registry

	statusBar   *views.StatusBar
	contactList *views.ContactList
	thread      *views.MessageThread
	composer    *views.Composer
	loginView   *views.LoginView
	callView    *views.CallView
	profileView *views.ProfileView
	filter      *tview.InputField
	addForm     *tview.Form

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, b *bus.Bus, profileName string, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		vm:          vm,
		bus:         b,
		logger:      logger,
		registry:    keys.NewRegistry(),
		statusBar:   views.NewStatusBar(),
		contactList: views.NewContactList(),
		thread:      views.NewMessageThread(),
		composer:    views.NewComposer(),
		loginView:   views.NewLoginView(),
		callView:    views.NewCallView(),
		profileView: views.NewProfileView(),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddPage("contacts", "quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddPage("contacts", "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.app.SetFocus(a.filter) },
	})
	a.registry.AddPage("contacts", "add", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:add", Visible: true,
		Handler: func() { a.showPage("add") },
	})
	a.registry.AddPage("contacts", "profile", &keys.Action{
		Rune: 'p', Key: tcell.KeyRune,
		Description: "p:profile", Visible: true,
		Handler: func() { a.showProfile() },
	})
	a.registry.AddPage("contacts", "theme", &keys.Action{
		Rune: 't', Key: tcell.KeyRune,
		Description: "t:theme", Visible: true,
		Handler: func() { a.toggleTheme() },
	})

	a.registry.AddPage("chat", "delete", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:delete", Visible: true,
		Handler: func() { a.deleteSelected(false) },
	})
	a.registry.AddPage("chat", "deleteAll", &keys.Action{
		Rune: 'D', Key: tcell.KeyRune,
		Description: "D:delete for everyone", Visible: true,
		Handler: func() { a.deleteSelected(true) },
	})
	a.registry.AddPage("chat", "call", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:call", Visible: true,
		Handler: func() { a.startCall() },
	})

	a.registry.AddPage("call", "answer", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:answer", Visible: true,
		Handler: func() { a.answerCall() },
	})
	a.registry.AddPage("call", "hangup", &keys.Action{
		Rune: 'h', Key: tcell.KeyRune,
		Description: "h:hang up", Visible: true,
		Handler: func() { a.hangUp() },
	})

	a.registry.AddPage("profile", "theme", &keys.Action{
		Rune: 't', Key: tcell.KeyRune,
		Description: "t:theme", Visible: true,
		Handler: func() { a.toggleTheme() },
	})
}

func (a *App) setupCallbacks() {
	a.contactList.SetSelectedFunc(func(row, col int) {
		if id := a.contactList.SelectedContact(); id != "" {
			a.openChat(id)
		}
	})

	a.filter = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0).
		SetChangedFunc(func(q string) {
			a.vm.SetFilter(q)
			a.contactList.Update(a.vm.ContactRows())
		})
	a.filter.SetDoneFunc(func(key tcell.Key) {
		a.app.SetFocus(a.contactList)
	})

	a.addForm = tview.NewForm().
		AddInputField("Name", "", 30, nil, nil).
		AddButton("Add", func() {
			name := a.addForm.GetFormItem(0).(*tview.InputField).GetText()
			if err := a.vm.AddContact(name); err != nil {
				a.vm.Flash.Set("Add failed: "+err.Error(), 5*time.Second)
			}
			a.addForm.GetFormItem(0).(*tview.InputField).SetText("")
			a.showContacts()
		}).
		AddButton("Cancel", func() { a.showContacts() })
	a.addForm.SetBorder(true).SetTitle(" New contact ")

	a.profileView.SetOnSave(func(name, id, about string) {
		if err := a.vm.UpdateSelf(name, id, about); err != nil {
			a.vm.Flash.Set("Update failed: "+err.Error(), 5*time.Second)
		} else {
			a.vm.Flash.Set("Profile updated", 3*time.Second)
			a.statusBar.SetUser(a.vm.Self().Name)
		}
		a.statusBar.SetFlash(a.vm.Flash.Get())
		a.showProfile()
	})

	a.composer.SetOnSend(func(text string) {
		if err := a.vm.Send(text); err != nil {
			a.vm.Flash.Set("Cannot send: "+err.Error(), 5*time.Second)
			a.statusBar.SetFlash(a.vm.Flash.Get())
		}
	})

	a.loginView.SetOnGuest(func() {
		if _, err := a.vm.Identity().SignInAsGuest(""); err != nil {
			a.vm.Flash.Set(err.Error(), 5*time.Second)
			return
		}
		a.enterSession()
	})
	a.loginView.SetOnToken(func(token string) {
		go func() {
			_, err := a.vm.Identity().SignInWithToken(a.ctx, token)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.vm.Flash.Set("Sign-in failed: "+err.Error(), 5*time.Second)
					a.loginView.Reset()
					a.statusBar.SetFlash(a.vm.Flash.Get())
					return
				}
				a.enterSession()
			})
		}()
	})
	a.loginView.SetOnRequestCode(func(phone string) {
		go func() {
			err := a.vm.Identity().RequestCode(a.ctx, phone)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.vm.Flash.Set("Code request failed: "+err.Error(), 5*time.Second)
					a.loginView.Reset()
					a.statusBar.SetFlash(a.vm.Flash.Get())
					return
				}
				a.loginView.ShowCodeStep()
			})
		}()
	})
	a.loginView.SetOnVerifyCode(func(phone, code string) {
		go func() {
			_, err := a.vm.Identity().VerifyCode(a.ctx, phone, code)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.vm.Flash.Set("Verification failed: "+err.Error(), 5*time.Second)
					a.loginView.Reset()
					a.statusBar.SetFlash(a.vm.Flash.Get())
					return
				}
				a.enterSession()
			})
		}()
	})
}

func (a *App) setupLayout() {
	contactsFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.contactList, 0, 1, true).
		AddItem(a.filter, 1, 0, false)

	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, true).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("login", a.loginView, true, true)
	a.pages.AddPage("contacts", contactsFlex, true, false)
	a.pages.AddPage("chat", chatFlex, true, false)
	a.pages.AddPage("add", a.addForm, true, false)
	a.pages.AddPage("profile", a.profileView, true, false)
	a.pages.AddPage("call", a.callView, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "chat":
				a.vm.CloseChat()
				a.showContacts()
				return nil
			case "add", "profile":
				a.showContacts()
				return nil
			case "call":
				if a.vm.Session().Stage() == call.Idle {
					a.showContacts()
					return nil
				}
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == "chat" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

func (a *App) enterSession() {
	a.statusBar.SetUser(a.vm.Self().Name)
	a.showContacts()
	a.scheduleIncomingCall()
}

func (a *App) showContacts() {
	a.contactList.Update(a.vm.ContactRows())
	a.showPage("contacts")
	a.app.SetFocus(a.contactList)
}

func (a *App) showProfile() {
	a.profileView.Update(a.vm.Self(), a.vm.ContactsForDisplay(), a.vm.CallLog(), a.vm.Theme())
	a.showPage("profile")
}

func (a *App) showPage(name string) {
	a.pages.SwitchToPage(name)
	a.statusBar.SetHints(a.registry.Hints(name))
}

func (a *App) openChat(id string) {
	a.vm.OpenChat(id)
	if peer, ok := a.vm.ActiveContact(); ok {
		presence := ""
		if peer.Presence != "" {
			presence = string(peer.Presence)
		}
		a.thread.SetChatName(peer.Name, presence)
	}
	a.thread.Update(a.vm.Messages())
	a.showPage("chat")
	a.app.SetFocus(a.thread)
}

func (a *App) deleteSelected(forEveryone bool) {
	if id := a.thread.SelectedMessageID(); id != "" {
		a.vm.DeleteMessage(id, forEveryone)
	}
}

func (a *App) startCall() {
	peer, ok := a.vm.ActiveContact()
	if !ok {
		return
	}
	if err := a.vm.Session().Dial(peer); err != nil {
		a.vm.Flash.Set(err.Error(), 5*time.Second)
		return
	}
	a.callView.Update(a.vm.Session())
	a.showPage("call")

	// No real signaling path; the peer answers after a short delay.
	go func() {
		select {
		case <-time.After(1500 * time.Millisecond):
		case <-a.ctx.Done():
			return
		}
		if a.vm.Session().Stage() == call.Dialing {
			_ = a.vm.Session().Connected()
		}
	}()
}

// scheduleIncomingCall simulates the remote side of the signaling path: an
// online contact rings after a while, and an unanswered ring times out into
// a missed call.
func (a *App) scheduleIncomingCall() {
	go func() {
		select {
		case <-time.After(45 * time.Second):
		case <-a.ctx.Done():
			return
		}
		var caller roster.User
		for _, c := range a.vm.ContactsForDisplay() {
			if c.Presence == roster.Online {
				caller = c
				break
			}
		}
		if caller.ID == "" || a.vm.Session().Stage() != call.Idle {
			return
		}
		if err := a.vm.Session().Ring(caller); err != nil {
			return
		}

		select {
		case <-time.After(15 * time.Second):
		case <-a.ctx.Done():
			return
		}
		if a.vm.Session().Stage() == call.Ringing {
			a.vm.Session().HangUp()
		}
	}()
}

func (a *App) answerCall() {
	if a.vm.Session().Stage() == call.Ringing {
		_ = a.vm.Session().Connected()
	}
}

func (a *App) hangUp() {
	a.vm.Session().HangUp()
	a.showContacts()
}

func (a *App) toggleTheme() {
	name := a.vm.ToggleTheme()
	themeByName(name).apply()
	a.bus.Emit("settings.theme_changed", name)
	if page, _ := a.pages.GetFrontPage(); page == "profile" {
		a.showProfile()
	}
}

// Run starts the TUI application. The snapshot is loaded by now, so the
// persisted theme applies before the first draw.
func (a *App) Run() error {
	themeByName(a.vm.Theme()).apply()
	if a.vm.SignedIn() {
		a.enterSession()
	} else {
		a.showPage("login")
	}

	a.startEventLoop()
	a.startClock()

	return a.app.Run()
}

// startEventLoop refreshes the UI whenever application state changes.
func (a *App) startEventLoop() {
	events, unsub := a.bus.Subscribe("", 256)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-events:
				a.handleEvent(evt)
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) handleEvent(evt bus.Event) {
	switch {
	case evt.Kind == "chat.message_appended":
		me, ok := evt.Payload.(chat.MessageEvent)
		if ok && me.ChatID == a.vm.ActiveChatID() {
			// Messages arriving in the open conversation are read on sight.
			a.vm.MarkActiveRead()
		}
	case evt.Kind == "call.stage_changed":
		sc, ok := evt.Payload.(call.StageChange)
		a.app.QueueUpdateDraw(func() {
			a.callView.Update(a.vm.Session())
			// An incoming ring takes over the screen so it can be answered.
			if ok && sc.To == call.Ringing {
				a.showPage("call")
			}
		})
		return
	}

	a.app.QueueUpdateDraw(func() {
		page, _ := a.pages.GetFrontPage()
		switch page {
		case "contacts":
			a.contactList.Update(a.vm.ContactRows())
		case "chat":
			a.thread.Update(a.vm.Messages())
			if peer, ok := a.vm.ActiveContact(); ok {
				a.thread.SetChatName(peer.Name, string(peer.Presence))
			}
		case "profile":
			a.profileView.Update(a.vm.Self(), a.vm.ContactsForDisplay(), a.vm.CallLog(), a.vm.Theme())
		}
		a.statusBar.SetFlash(a.vm.Flash.Get())
	})
}

// startClock ticks the status bar clock and the live call timer.
func (a *App) startClock() {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(a.vm.Flash.Get())
					if page, _ := a.pages.GetFrontPage(); page == "call" {
						a.callView.Update(a.vm.Session())
					}
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
