// Package notify surfaces run lifecycle events to the operator.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier delivers a short user-facing message about an export run.
type Notifier interface {
	Notify(title, message string)
}

// Desktop sends native desktop notifications and mirrors them to the log
// so headless runs still record the event.
type Desktop struct {
	log *zap.Logger
}

func NewDesktop(log *zap.Logger) *Desktop {
	return &Desktop{log: log}
}

func (d *Desktop) Notify(title, message string) {
	d.log.Info("notification", zap.String("title", title), zap.String("message", message))
	if err := beeep.Notify(title, message, ""); err != nil {
		d.log.Debug("desktop notification unavailable", zap.Error(err))
	}
}

// Log writes notifications to the log only. Used when desktop
// notifications are disabled or no display is present.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(title, message string) {
	l.log.Info("notification", zap.String("title", title), zap.String("message", message))
}
