package views

import (
	"github.com/rivo/tview"
)

// LoginView is the pre-session page: pick a sign-in method, then complete
// its flow. The phone flow has two steps (number, then code).
type LoginView struct {
	*tview.Pages

	methods  *tview.List
	phone    *tview.Form
	otp      *tview.Form
	token    *tview.Form
	lastStep string

	onToken       func(token string)
	onRequestCode func(phone string)
	onVerifyCode  func(phone, code string)
	onGuest       func()

	enteredPhone string
}

// NewLoginView creates the login page.
func NewLoginView() *LoginView {
	lv := &LoginView{Pages: tview.NewPages()}

	lv.methods = tview.NewList().
		AddItem("Sign in with Google", "paste an OAuth id token", 'g', func() { lv.showStep("token") }).
		AddItem("Sign in with phone", "receive a one-time code", 'p', func() { lv.showStep("phone") }).
		AddItem("Continue as guest", "local only, nothing saved remotely", 'c', func() {
			if lv.onGuest != nil {
				lv.onGuest()
			}
		})
	lv.methods.SetBorder(true).SetTitle(" Welcome to ZX ")

	lv.token = tview.NewForm().
		AddInputField("ID token", "", 0, nil, nil).
		AddButton("Sign in", func() {
			token := lv.token.GetFormItem(0).(*tview.InputField).GetText()
			if lv.onToken != nil {
				lv.onToken(token)
			}
		}).
		AddButton("Back", func() { lv.showStep("methods") })
	lv.token.SetBorder(true).SetTitle(" Google sign-in ")

	lv.phone = tview.NewForm().
		AddInputField("Phone number", "", 20, nil, nil).
		AddButton("Send code", func() {
			lv.enteredPhone = lv.phone.GetFormItem(0).(*tview.InputField).GetText()
			if lv.onRequestCode != nil {
				lv.onRequestCode(lv.enteredPhone)
			}
		}).
		AddButton("Back", func() { lv.showStep("methods") })
	lv.phone.SetBorder(true).SetTitle(" Phone sign-in ")

	lv.otp = tview.NewForm().
		AddInputField("Code", "", 8, nil, nil).
		AddButton("Verify", func() {
			code := lv.otp.GetFormItem(0).(*tview.InputField).GetText()
			if lv.onVerifyCode != nil {
				lv.onVerifyCode(lv.enteredPhone, code)
			}
		}).
		AddButton("Back", func() { lv.showStep("phone") })
	lv.otp.SetBorder(true).SetTitle(" Enter code ")

	lv.AddPage("methods", center(lv.methods, 50, 10), true, true)
	lv.AddPage("token", center(lv.token, 60, 9), true, false)
	lv.AddPage("phone", center(lv.phone, 44, 9), true, false)
	lv.AddPage("otp", center(lv.otp, 36, 9), true, false)
	lv.lastStep = "methods"
	return lv
}

// SetOnToken sets the OAuth id-token callback.
func (lv *LoginView) SetOnToken(fn func(token string)) { lv.onToken = fn }

// SetOnRequestCode sets the phone-number callback.
func (lv *LoginView) SetOnRequestCode(fn func(phone string)) { lv.onRequestCode = fn }

// SetOnVerifyCode sets the code-verification callback.
func (lv *LoginView) SetOnVerifyCode(fn func(phone, code string)) { lv.onVerifyCode = fn }

// SetOnGuest sets the guest sign-in callback.
func (lv *LoginView) SetOnGuest(fn func()) { lv.onGuest = fn }

// ShowCodeStep advances the phone flow to code entry.
func (lv *LoginView) ShowCodeStep() {
	lv.showStep("otp")
}

// Reset returns to the method chooser, e.g. after an auth failure.
func (lv *LoginView) Reset() {
	lv.showStep("methods")
}

func (lv *LoginView) showStep(name string) {
	lv.lastStep = name
	lv.SwitchToPage(name)
}

// center wraps p in flex spacers so it renders as a fixed-size box.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
