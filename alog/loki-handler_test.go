package alog_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/alog"
)

func TestNewLokiHandler(t *testing.T) {
	t.Parallel()

	t.Run("push records", func(t *testing.T) {
		t.Parallel()

		var (
			mu     sync.Mutex
			pushed []string
		)

		loki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				body, _ := io.ReadAll(r.Body)

				mu.Lock()
				pushed = append(pushed, string(body))
				mu.Unlock()
			}

			w.WriteHeader(http.StatusNoContent)
		}))
		t.Cleanup(loki.Close)

		handler := alog.NewLokiHandler(&alog.LokiHandlerOptions{
			PushURL: loki.URL,
			Labels:  map[string]string{"app": "geocontrol-test"},
		})
		logger := slog.New(handler).With(slog.String("context", "geo"))

		logger.Info("provider lookup failed", slog.String("service", "ip-api"))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()

			all := strings.Join(pushed, "")

			return strings.Contains(all, "provider lookup failed") &&
				strings.Contains(all, "geocontrol-test") &&
				strings.Contains(all, "ip-api")
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("loki not reachable", func(t *testing.T) {
		t.Parallel()

		handler := alog.NewLokiHandler(&alog.LokiHandlerOptions{
			PushURL:       "http://127.0.0.1:1/api/prom/push",
			RetryInterval: time.Minute,
		})

		assert.True(t, handler.Enabled(ctx, slog.LevelDebug))
		assert.NoError(t, slog.New(handler).Handler().Handle(ctx, slog.NewRecord(time.Now(), slog.LevelInfo, "dropped", 0)))
	})
}
