package engine

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Event type identifiers for the engine's lifecycle/meta notification
// stream, distinct from the domain event.Event stream carried by the
// bus.
const (
	CloudEventTypeStateChanged     = "com.astockquant.engine.state_changed"
	CloudEventTypeError            = "com.astockquant.engine.error"
	CloudEventTypeStatisticsUpdate = "com.astockquant.engine.statistics_updated"
)

// CloudEventSink receives the engine's lifecycle notifications wrapped
// as CloudEvents, for hosts that want a spec-compliant, transport-
// agnostic envelope instead of consuming EngineListener's Go-native
// callbacks directly.
type CloudEventSink interface {
	Emit(ce cloudevents.Event)
}

// CloudEventSinkFunc adapts a plain function to a CloudEventSink.
type CloudEventSinkFunc func(ce cloudevents.Event)

func (f CloudEventSinkFunc) Emit(ce cloudevents.Event) { f(ce) }

type stateChangedPayload struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func newLifecycleCloudEvent(source, ceType string, data interface{}) cloudevents.Event {
	ce := cloudevents.NewEvent()
	ce.SetID(uuid.NewString())
	ce.SetSource(source)
	ce.SetType(ceType)
	ce.SetTime(time.Now())
	ce.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = ce.SetData(cloudevents.ApplicationJSON, data)
	}
	return ce
}

func (e *Engine) emitCloudEvent(ceType string, data interface{}) {
	e.listenersMu.RLock()
	sink := e.ceSink
	e.listenersMu.RUnlock()
	if sink == nil {
		return
	}
	sink.Emit(newLifecycleCloudEvent("astockquant/engine", ceType, data))
}

// SetCloudEventSink installs (or clears, via nil) the sink that
// receives CloudEvents-wrapped lifecycle notifications alongside the
// plain EngineListener callbacks.
func (e *Engine) SetCloudEventSink(sink CloudEventSink) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.ceSink = sink
}
