// Package monitor provides the structured event stream emitted by the
// server core and the logging bridge behind it.
//
// Every observable thing the core does (a connection arriving, a request
// being parsed, a worker panicking) is reported as an Event. An application
// can subscribe to the event stream with a level filter, and every event is
// also mirrored to a logrus logger so that embedders who only want logs get
// them for free.
package monitor

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a monitor event.
type Level int8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// String returns the printable name of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// Kind identifies what happened.
type Kind string

const (
	KindConnectionAccepted Kind = "ConnectionAccepted"
	KindRequestParsed      Kind = "RequestParsed"
	KindRouteMatched       Kind = "RouteMatched"
	KindResponseSent       Kind = "ResponseSent"
	KindConnectionClosed   Kind = "ConnectionClosed"
	KindThreadPoolOverload Kind = "ThreadPoolOverload"
	KindWorkerPanic        Kind = "WorkerPanic"
	KindShutdownStarted    Kind = "ShutdownStarted"
	KindShutdownComplete   Kind = "ShutdownComplete"
)

// Event is a single structured monitor record.
type Event struct {
	Time   time.Time
	Level  Level
	Kind   Kind
	Detail string
}

// Monitor fans events out to an optional subscriber channel and to logrus.
//
// A nil *Monitor is valid and drops everything; the core calls Emit
// unconditionally.
type Monitor struct {
	level  Level
	events chan Event
	logger *logrus.Logger
}

// New creates a monitor that accepts events at or below the given level.
// Events above the level are dropped before any formatting work is done.
func New(level Level) *Monitor {
	logger := logrus.New()
	logger.SetLevel(level.logrusLevel())
	return &Monitor{level: level, logger: logger}
}

// WithLogger replaces the backing logrus logger. Useful for tests and for
// applications that already configured logrus output/formatting.
func (m *Monitor) WithLogger(logger *logrus.Logger) *Monitor {
	m.logger = logger
	return m
}

// Subscribe returns the event channel, creating it on first call. The channel
// is buffered; if the subscriber falls behind, events are dropped rather than
// blocking the connection drivers.
func (m *Monitor) Subscribe() <-chan Event {
	if m.events == nil {
		m.events = make(chan Event, 256)
	}
	return m.events
}

// Emit records one event. Safe to call on a nil monitor.
func (m *Monitor) Emit(level Level, kind Kind, detail string) {
	if m == nil || level > m.level {
		return
	}

	ev := Event{Time: time.Now(), Level: level, Kind: kind, Detail: detail}

	if m.events != nil {
		select {
		case m.events <- ev:
		default: // subscriber is behind, drop
		}
	}

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"kind": string(kind)}).Log(level.logrusLevel(), detail)
	}
}

// Errorf, Warnf etc. are not provided on purpose: the core reports through
// kinds so that subscribers can filter without parsing message text.
