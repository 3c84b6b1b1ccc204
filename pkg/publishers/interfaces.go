package publishers

import (
	"context"

	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

// Publisher delivers relay events to one downstream sink.
// Sinks that hold clients also implement io.Closer and are closed by the fanout.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the sender's logging surface; the HTTP sink hands it straight through.
type Logger = sender.Logger

type discardLogger struct{}

func (discardLogger) InfoObj(string, string, interface{})  {}
func (discardLogger) DebugObj(string, string, interface{}) {}
func (discardLogger) WarnObj(string, string, interface{})  {}
func (discardLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return discardLogger{}
	}
	return log
}
