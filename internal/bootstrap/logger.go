package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

// BuildLogger returns the process logger. When sentry.dsn is set, error entries are
// also sent to Sentry; the returned flush must run before exit.
func BuildLogger(cfg config.Config) (*logrus.Logger, func(), error) {
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Sentry.DSN == "" {
		return log, func() {}, nil
	}

	env := cfg.Sentry.Environment
	if env == "" {
		env = cfg.Env
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		AttachStacktrace: true,
		Release:          cfg.Sentry.Release,
		Environment:      env,
		SampleRate:       cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Error("sentry init failed")
		return log, func() {}, nil
	}
	log.AddHook(newSentryHook(sentry.CurrentHub()))
	return log, func() { sentry.Flush(sentryFlushTimeout) }, nil
}

func buildLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	switch cfg.Log.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "console", "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return nil, errors.New("log format error: supported values are console or json")
	}
	return log, nil
}

type sentryHook struct {
	hub *sentry.Hub
}

func newSentryHook(hub *sentry.Hub) *sentryHook {
	return &sentryHook{hub: hub}
}

func (h *sentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

func (h *sentryHook) Fire(entry *logrus.Entry) error {
	event := sentry.NewEvent()
	event.Level = sentryLevel(entry.Level)
	event.Message = entry.Message
	event.Timestamp = entry.Time

	for k, v := range entry.Data {
		if k == logrus.ErrorKey {
			if err, ok := v.(error); ok {
				event.Exception = []sentry.Exception{{Type: fmt.Sprintf("%T", err), Value: err.Error()}}
				continue
			}
		}
		if s, ok := v.(string); ok && isTagField(k) {
			event.Tags[k] = s
			continue
		}
		event.Extra[k] = v
	}

	h.hub.CaptureEvent(event)
	return nil
}

func isTagField(key string) bool {
	switch key {
	case "event_type", "component", "request_id":
		return true
	default:
		return false
	}
}

func sentryLevel(level logrus.Level) sentry.Level {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	case logrus.ErrorLevel:
		return sentry.LevelError
	case logrus.WarnLevel:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
