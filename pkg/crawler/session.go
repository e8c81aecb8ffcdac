package crawler

import (
	"context"
	"net/http"
	"time"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/browser"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/navigator"
)

// Session logs a dedicated account in and out through the browser UI.
type Session struct {
	nav      Navigator
	browser  browser.Browser
	account  auth.Account
	prompter auth.Prompter
	logger   logger.Logger
	loggedIn bool

	// Pause is the wait after each form submission. Later waits are twice
	// as long.
	Pause time.Duration
}

// NewSession prepares a login for account. A missing password, and the
// security code when the site asks for one, are read through prompter.
func NewSession(nav Navigator, b browser.Browser, account auth.Account, prompter auth.Prompter, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		nav:      nav,
		browser:  b,
		account:  account,
		prompter: prompter,
		logger:   log.WithFields(map[string]interface{}{"component": "session", "account": account.Username}),
		Pause:    2 * time.Second,
	}
}

// LoggedIn reports whether Login succeeded and Logout has not run since.
func (s *Session) LoggedIn() bool {
	return s.loggedIn
}

// Username is the account the session logs in with.
func (s *Session) Username() string {
	return s.account.Username
}

// Login submits the login form. A rejected login or a form that cannot be
// filled is an auth error and halts the run. The prompts to save the login
// and to enable notifications are dismissed when they show up.
func (s *Session) Login(ctx context.Context) error {
	if s.loggedIn {
		return nil
	}
	if s.account.Password == "" {
		password, err := s.prompter.Secret("enter your password: ")
		if err != nil {
			return errs.Wrap(errs.ErrorTypeAuth, err, "read password")
		}
		s.account.Password = password
	}

	if err := s.nav.Navigate(ctx, instagram.HomeURL(), navigator.Force()); err != nil {
		return err
	}
	if err := pause(ctx, s.Pause); err != nil {
		return err
	}

	if err := s.fill(ctx, instagram.SelectorUsernameInput, s.account.Username); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "enter username")
	}
	if err := s.fill(ctx, instagram.SelectorPasswordInput, s.account.Password); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "enter password")
	}
	if err := s.click(ctx, instagram.SelectorLoginButton); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "submit login")
	}
	if err := pause(ctx, 2*s.Pause); err != nil {
		return err
	}

	if err := s.securityCode(ctx); err != nil {
		return err
	}

	if s.click(ctx, instagram.SelectorSaveLoginNotNow) == nil {
		if err := pause(ctx, s.Pause); err != nil {
			return err
		}
	}

	if browser.Exists(ctx, s.browser, instagram.SelectorFailedLogin) {
		s.logger.Error("failed login message appeared")
		return errs.New(errs.ErrorTypeAuth, "login failed for "+s.account.Username)
	}

	_ = s.click(ctx, instagram.SelectorNotificationsNotNow)

	s.loggedIn = true
	s.logger.Info("logged in")
	return nil
}

// securityCode answers the two-factor prompt when the site shows it.
func (s *Session) securityCode(ctx context.Context) error {
	input, err := s.browser.Find(ctx, instagram.SelectorSecurityCode)
	if err != nil {
		return nil
	}
	if err := input.Click(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "focus security code")
	}
	if err := pause(ctx, s.Pause); err != nil {
		return err
	}

	code, err := s.prompter.Secret("enter security code: ")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "read security code")
	}
	if err := input.SendKeys(ctx, code); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "enter security code")
	}
	if err := s.click(ctx, instagram.SelectorSecurityConfirm); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "confirm security code")
	}
	return pause(ctx, 2*s.Pause)
}

// Logout opens the account's profile and logs out from its options menu.
func (s *Session) Logout(ctx context.Context) error {
	if !s.loggedIn {
		return nil
	}
	if err := s.nav.Navigate(ctx, instagram.ProfileURL(s.account.Username)); err != nil {
		return err
	}
	if err := s.click(ctx, instagram.SelectorSettings); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "open options")
	}
	if err := s.click(ctx, instagram.SelectorLogoutButton); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "log out")
	}
	s.loggedIn = false
	s.logger.Info("logged out")
	return pause(ctx, s.Pause)
}

// Cookies returns the session cookies so HTTP requests can share the login.
func (s *Session) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return s.browser.Cookies(ctx)
}

func (s *Session) fill(ctx context.Context, selector, text string) error {
	el, err := s.browser.Find(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}

func (s *Session) click(ctx context.Context, selector string) error {
	el, err := s.browser.Find(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}
