package instagram

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/retry"
)

type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, handler func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	return NewClient(5*time.Second, "test-agent", logger.NewTestLogger(),
		WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: handler}}),
		WithRetry(&retry.Config{
			MaxAttempts: 5,
			Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		}),
	)
}

func TestUserIDParsesGraphQLDocument(t *testing.T) {
	var seenURL, seenAgent string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		seenURL = req.URL.String()
		seenAgent = req.Header.Get("User-Agent")
		return newResponse(http.StatusOK, `{"graphql":{"user":{"id":"787132","username":"natgeo"}}}`), nil
	})

	id, err := client.UserID(context.Background(), "natgeo")
	require.NoError(t, err)
	assert.Equal(t, "787132", id)
	assert.Equal(t, "https://www.instagram.com/natgeo/?__a=1", seenURL)
	assert.Equal(t, "test-agent", seenAgent)
}

func TestUserIDMissingKeyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `{"graphql":{}}`), nil
	})

	_, err := client.UserID(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return newResponse(http.StatusServiceUnavailable, ""), nil
		}
		return newResponse(http.StatusOK, `{"graphql":{"user":{"id":"1"}}}`), nil
	})

	id, err := client.UserID(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return newResponse(http.StatusNotFound, ""), nil
	})

	_, err := client.GetBytes(context.Background(), PostURL("abc"), nil)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCheckResponseStatus(t *testing.T) {
	tests := []struct {
		code int
		want errs.ErrorType
	}{
		{401, errs.ErrorTypeAuth},
		{403, errs.ErrorTypeAuth},
		{404, errs.ErrorTypeNotFound},
		{429, errs.ErrorTypeRateLimit},
		{502, errs.ErrorTypeServerError},
		{418, errs.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		err := checkResponseStatus(newResponse(tt.code, ""))
		require.Error(t, err, tt.code)
		assert.Equal(t, tt.want, errs.TypeOf(err), tt.code)
	}
	assert.NoError(t, checkResponseStatus(newResponse(200, "")))
}

func TestUsernameUsesMobileAgent(t *testing.T) {
	var seenAgent, seenURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		seenAgent = req.Header.Get("User-Agent")
		seenURL = req.URL.String()
		return newResponse(http.StatusOK, `{"user":{"username":"renamed"},"status":"ok"}`), nil
	})

	name, err := client.Username(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "renamed", name)
	assert.Equal(t, MobileUserAgent, seenAgent)
	assert.Equal(t, "https://i.instagram.com/api/v1/users/42/info/", seenURL)
}

func TestCookiesAreForwarded(t *testing.T) {
	var cookie string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if c, err := req.Cookie("sessionid"); err == nil {
			cookie = c.Value
		}
		return newResponse(http.StatusOK, "{}"), nil
	})
	client.SetCookies([]*http.Cookie{{Name: "sessionid", Value: "s3cr3t"}})

	_, err := client.GetBytes(context.Background(), HomeURL(), nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cookie)
}

func TestCheckReachable(t *testing.T) {
	ok := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `{"graphql":{"user":{"id":"25025320"}}}`), nil
	})
	assert.NoError(t, ok.CheckReachable(context.Background()))

	blocked := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `<html>login</html>`), nil
	})
	err := blocked.CheckReachable(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAccessRestricted, errs.TypeOf(err))
	assert.True(t, errs.IsFatal(err))
}

func TestPostInfoSidecar(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `{"graphql":{"shortcode_media":{"shortcode":"abc","edge_sidecar_to_children":{"edges":[
			{"node":{"display_url":"https://cdn/a.jpg"}},
			{"node":{"is_video":true,"video_url":"https://cdn/b.mp4"}}]}}}}`), nil
	})

	media, err := client.PostInfo(context.Background(), "abc")
	require.NoError(t, err)

	_, err = media.VideoURLAt(0)
	assert.Error(t, err)
	url, err := media.VideoURLAt(1)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/b.mp4", url)
	_, err = media.VideoURLAt(2)
	assert.Error(t, err)
}
