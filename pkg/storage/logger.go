package storage

import (
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// pebbleLogger routes pebble's internal log lines into zap.
type pebbleLogger struct {
	log *zap.SugaredLogger
}

func (l pebbleLogger) Infof(format string, args ...interface{})  { l.log.Infof(format, args...) }
func (l pebbleLogger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }
func (l pebbleLogger) Fatalf(format string, args ...interface{}) { l.log.Fatalf(format, args...) }

var _ pebble.Logger = pebbleLogger{}
