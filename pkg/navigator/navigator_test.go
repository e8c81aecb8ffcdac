package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawler/pkg/browser"
	"igcrawler/pkg/browser/browsertest"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
)

const profile = "https://www.instagram.com/natgeo/"

func testConfig() Config {
	return Config{ReadyTimeout: time.Second, MaxAttempts: 6}
}

// reloadMarkerFor shows the reload prompt on the first failing loads of a URL.
func reloadMarkerFor(failing int) func(b *browsertest.Browser, url string, n int) error {
	return func(b *browsertest.Browser, url string, n int) error {
		if n <= failing {
			b.SetDOM(instagram.SelectorReloadButton, browsertest.NewElement())
		} else {
			b.SetDOM(instagram.SelectorReloadButton)
		}
		return nil
	}
}

func TestNavigateRecoversFromReloadPrompt(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = reloadMarkerFor(2)

	nav := New(b, testConfig(), logger.NewTestLogger())
	require.NoError(t, nav.Navigate(context.Background(), profile))
	assert.Equal(t, 3, b.Loads(profile))
}

func TestNavigateGivesUpAfterBound(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = func(b *browsertest.Browser, url string, n int) error {
		b.SetDOM(instagram.SelectorErrorPage, browsertest.NewElement())
		return nil
	}

	nav := New(b, testConfig(), logger.NewTestLogger())
	err := nav.Navigate(context.Background(), profile)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageLoadTimeout)
	assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
	assert.True(t, errs.IsFatal(err))
	assert.Equal(t, 6, b.Loads(profile))
}

func TestWithMaxAttemptsOverridesBound(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = reloadMarkerFor(100)

	nav := New(b, testConfig(), logger.NewTestLogger())
	err := nav.Navigate(context.Background(), profile, WithMaxAttempts(3))

	assert.ErrorIs(t, err, ErrPageLoadTimeout)
	assert.Equal(t, 3, b.Loads(profile))
}

func TestEachCallGetsAFreshCounter(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = func(b *browsertest.Browser, url string, n int) error {
		// every odd load fails
		if n%2 == 1 {
			b.SetDOM(instagram.SelectorReloadButton, browsertest.NewElement())
		} else {
			b.SetDOM(instagram.SelectorReloadButton)
		}
		return nil
	}

	nav := New(b, Config{MaxAttempts: 2}, logger.NewTestLogger())
	for i := 0; i < 3; i++ {
		require.NoError(t, nav.Navigate(context.Background(), profile, Force()))
	}
	assert.Equal(t, 6, b.Loads(profile))
}

func TestNavigateSkipsCurrentPage(t *testing.T) {
	b := browsertest.New()
	nav := New(b, testConfig(), logger.NewTestLogger())

	require.NoError(t, nav.Navigate(context.Background(), profile))
	require.NoError(t, nav.Navigate(context.Background(), "https://www.instagram.com/natgeo"))
	assert.Equal(t, 1, b.Loads(profile))

	require.NoError(t, nav.Navigate(context.Background(), profile, Force()))
	assert.Equal(t, 2, b.Loads(profile))
}

func TestDriverFailureIsNavigationError(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = func(b *browsertest.Browser, url string, n int) error {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}

	nav := New(b, testConfig(), logger.NewTestLogger())
	err := nav.Navigate(context.Background(), profile)

	assert.ErrorIs(t, err, ErrPageLoadTimeout)
	assert.True(t, errs.Is(err, errs.ErrorTypeNavigation))
	assert.Equal(t, 1, b.Loads(profile))
}

func TestReadyTimeoutIsNavigationError(t *testing.T) {
	b := browsertest.New()
	b.WaitErr = browser.ErrWaitTimeout

	nav := New(b, testConfig(), logger.NewTestLogger())
	err := nav.Navigate(context.Background(), profile)

	assert.ErrorIs(t, err, ErrPageLoadTimeout)
	assert.ErrorIs(t, err, browser.ErrWaitTimeout)
}

func TestCancelledContext(t *testing.T) {
	b := browsertest.New()
	nav := New(b, testConfig(), logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := nav.Navigate(ctx, profile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.Navigations())
}

func TestCookieBannerDismissedOnce(t *testing.T) {
	b := browsertest.New()
	banner := browsertest.NewElement()
	b.SetDOM(instagram.SelectorAcceptCookies, banner)

	nav := New(b, testConfig(), logger.NewTestLogger())
	require.NoError(t, nav.Navigate(context.Background(), profile))
	require.NoError(t, nav.Navigate(context.Background(), instagram.ExploreTagURL("sunset")))

	assert.Equal(t, 1, banner.Clicks())
}

func TestCookieBannerFailureIsIgnored(t *testing.T) {
	b := browsertest.New()
	banner := browsertest.NewElement()
	banner.ClickErr = errors.New("element not interactable")
	b.SetDOM(instagram.SelectorAcceptCookies, banner)

	nav := New(b, testConfig(), logger.NewTestLogger())
	assert.NoError(t, nav.Navigate(context.Background(), profile))
}
