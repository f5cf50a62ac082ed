package alog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afiskon/promtail-client/promtail"
	"github.com/cenkalti/backoff/v4"
)

const defaultLokiPushURL = "http://localhost:3100/api/prom/push"

// LokiHandlerOptions configure where and with which stream labels records are pushed.
type LokiHandlerOptions struct {
	PushURL string
	Labels  map[string]string

	// RetryInterval caps the wait between two connection attempts while loki is unreachable.
	RetryInterval time.Duration
}

// NewLokiHandler ships every record as JSON to a loki instance.
// Use it for local development only, in production log to stdout and let the runtime ship the logs.
//
// If loki is not reachable, records are dropped until a background retry connects.
func NewLokiHandler(opt *LokiHandlerOptions) *LokiHandler {
	conf, retry := promtailConfig(opt)

	sink := &lokiSink{}

	buf := &bytes.Buffer{}
	handler := &LokiHandler{
		sink: sink,
		renderer: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       LevelTrace, // the geoHandler decides on the level
			ReplaceAttr: MapLogLevelsToName,
		}),
		output: buf,
	}

	if client, err := connectLoki(conf); err == nil {
		sink.set(client)

		return handler
	}

	go func() {
		b := backoff.NewExponentialBackOff(backoff.WithMaxInterval(retry), backoff.WithMaxElapsedTime(0))

		_ = backoff.Retry(func() error {
			client, err := connectLoki(conf)
			if err != nil {
				return err
			}

			sink.set(client)

			return nil
		}, b)
	}()

	return handler
}

func promtailConfig(opt *LokiHandlerOptions) (promtail.ClientConfig, time.Duration) {
	if opt == nil {
		opt = &LokiHandlerOptions{}
	}

	pushURL := opt.PushURL
	if pushURL == "" {
		pushURL = defaultLokiPushURL
	}

	labels := opt.Labels
	if len(labels) == 0 {
		labels = map[string]string{"app": "geocontrol"}
	}

	retry := opt.RetryInterval
	if retry == 0 {
		retry = 15 * time.Second
	}

	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}

	sort.Strings(pairs)

	return promtail.ClientConfig{
		PushURL:            pushURL,
		Labels:             "{" + strings.Join(pairs, ",") + "}",
		BatchWait:          time.Second,
		BatchEntriesNumber: 1,
		SendLevel:          promtail.DEBUG,
		PrintLevel:         promtail.DISABLE,
	}, retry
}

// connectLoki returns a client only if the push endpoint answers at all,
// promtail itself does not check the connection.
func connectLoki(conf promtail.ClientConfig) (promtail.Client, error) { //nolint:ireturn // promtail only offers the interface
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conf.PushURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loki not reachable: %w", err)
	}

	_ = res.Body.Close()

	return promtail.NewClientJson(conf) //nolint:wrapcheck // promtail never returns an error here
}

// lokiSink is shared by a handler and all handlers derived from it,
// so a late connection reaches every one of them.
type lokiSink struct {
	mu     sync.Mutex
	client promtail.Client
}

func (s *lokiSink) set(client promtail.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = client
}

type LokiHandler struct {
	sink *lokiSink

	renderer slog.Handler
	output   *bytes.Buffer
}

var _ slog.Handler = (*LokiHandler)(nil)

func (l *LokiHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (l *LokiHandler) Handle(ctx context.Context, record slog.Record) error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.client == nil {
		return nil
	}

	if err := l.renderer.Handle(ctx, record); err != nil {
		return fmt.Errorf("could not render record for loki: %w", err)
	}

	// grafana: {app="geocontrol"} | json | msg="provider lookup failed"
	l.sink.client.Infof("%s", l.output.String())
	l.output.Reset()

	return nil
}

func (l *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LokiHandler{sink: l.sink, renderer: l.renderer.WithAttrs(attrs), output: l.output}
}

func (l *LokiHandler) WithGroup(name string) slog.Handler {
	return &LokiHandler{sink: l.sink, renderer: l.renderer.WithGroup(name), output: l.output}
}
