package events

import (
	"context"

	"github.com/phrazzld/hierconf/internal/platform/metrics"
)

// MetricsHandler counts committed writes by operation and scope level.
type MetricsHandler struct {
	Metrics metrics.Recorder
}

// HandleEvent implements EventHandler.
func (h MetricsHandler) HandleEvent(_ context.Context, event *ConfigChangedEvent) error {
	h.Metrics.IncWrite(event.Operation(), event.Scope.Level().String())
	return nil
}
