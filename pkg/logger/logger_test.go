package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawler/pkg/config"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantNop bool
		wantErr bool
	}{
		{"disabled", &config.LoggingConfig{Enabled: false, Level: "info"}, true, false},
		{"nil config", nil, true, false},
		{"console info", &config.LoggingConfig{Enabled: true, Level: "info", Console: true}, false, false},
		{"invalid level", &config.LoggingConfig{Enabled: true, Level: "loud"}, false, true},
		{"file output", &config.LoggingConfig{Enabled: true, Level: "debug", File: filepath.Join(dir, "logs", "crawl.log")}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
			if tt.wantNop {
				assert.Nil(t, log.GetZerolog())
			} else {
				assert.NotNil(t, log.GetZerolog())
			}
		})
	}
}

func TestFileOutputIsWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.log")
	log, err := New(&config.LoggingConfig{Enabled: true, Level: "info", File: path})
	require.NoError(t, err)

	log.WithField("entity", "natgeo").Info("crawl started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crawl started")
	assert.Contains(t, string(data), "natgeo")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.level)
		if tt.wantErr {
			assert.Error(t, err, tt.level)
			continue
		}
		assert.NoError(t, err, tt.level)
		assert.Equal(t, tt.expected, got, tt.level)
	}
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.WithField("component", "collector").
		WithError(errors.New("stale element")).
		InfoWithFields("scroll pass", map[string]interface{}{
			"links":   12,
			"pause":   500 * time.Millisecond,
			"partial": true,
		})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scroll pass", entry["message"])
	assert.Equal(t, "collector", entry["component"])
	assert.Equal(t, "stale element", entry["error"])
	assert.Equal(t, float64(12), entry["links"])
	assert.Equal(t, true, entry["partial"])
	assert.Equal(t, "igcrawler", entry["app"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.InfoLevel)
	_ = parent.WithField("entity", "a")

	parent.Info("plain")
	assert.NotContains(t, buf.String(), `"entity"`)
}

func TestTestLoggerCapturesDerivedFields(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("link", "https://www.instagram.com/p/abc/").
		WithError(errors.New("no indicator")).
		Warn("post skipped")
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "https://www.instagram.com/p/abc/", msgs[0].Fields["link"])
	assert.EqualError(t, msgs[0].Error, "no indicator")
	assert.True(t, tl.HasMessage("done"))
	assert.True(t, tl.HasMessageContaining("skipped"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
	assert.Empty(t, tl.String())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogNavigation(tl, "https://www.instagram.com/natgeo/", 2, time.Second, errors.New("timeout"))
	LogRequest(tl, "GET", "https://cdn/x.jpg", 503, 20*time.Millisecond)
	LogCrawlProgress(tl, "natgeo", 3, 12)
	LogComponentStart(tl, "crawler", map[string]interface{}{"max": 10})
	LogComponentStop(tl, "crawler", "interrupted")
	LogDownload(tl, "https://cdn/a.jpg", "users/natgeo/posts", nil)
	LogDownload(tl, "https://cdn/b.jpg", "users/natgeo/posts", errors.New("save failed"))

	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 2)
	assert.True(t, tl.HasMessage("Download completed"))

	failed := tl.GetMessagesByLevel("ERROR")[1]
	assert.Equal(t, "Download failed", failed.Message)
	assert.Equal(t, "https://cdn/b.jpg", failed.Fields["url"])
	assert.Equal(t, "users/natgeo/posts", failed.Fields["dir"])
	assert.True(t, tl.HasMessage("Crawl progress"))
	assert.True(t, tl.HasMessage("Component stopped"))

	progress := tl.GetMessagesByLevel("INFO")[0]
	assert.Equal(t, "25.0%", progress.Fields["percentage"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").WithError(errors.New("x")).Error("ignored")
		log.InfoWithFields("ignored", nil)
	})
}
