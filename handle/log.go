package handle

import (
	"go.uber.org/zap"
)

// LogObserver writes handle lifecycle events to a zap logger at debug level.
type LogObserver struct {
	logger *zap.Logger
	names  map[uint32]string
}

// NewLogObserver creates an observer that labels events with the given
// kind names. Unknown kinds are logged by number.
func NewLogObserver(logger *zap.Logger, names map[uint32]string) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger, names: names}
}

// OnHandleEvent implements Observer.
func (o *LogObserver) OnHandleEvent(e Event) {
	if ce := o.logger.Check(zap.DebugLevel, "handle "+e.Type.String()); ce != nil {
		fields := []zap.Field{
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint32("kind", e.Kind),
		}
		if name, ok := o.names[e.Kind]; ok {
			fields = append(fields, zap.String("kind_name", name))
		}
		ce.Write(fields...)
	}
}
