package metrics

import (
	"context"
	"encoding/json"

	"github.com/ricesearch/rice-insight/internal/bus"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// EventSubscriber feeds bus events into Metrics.
type EventSubscriber struct {
	metrics *Metrics
	bus     bus.Bus
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(metrics *Metrics, eventBus bus.Bus) *EventSubscriber {
	return &EventSubscriber{
		metrics: metrics,
		bus:     eventBus,
	}
}

// SubscribeToEvents subscribes to the pipeline topics.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	subs := []struct {
		topic   string
		handler bus.Handler
	}{
		{bus.TopicQueryProcessed, es.handleQueryProcessed},
		{bus.TopicSearchCompleted, es.handleSearchCompleted},
		{bus.TopicIndexCompleted, es.handleIndexCompleted},
	}
	for _, s := range subs {
		if err := es.bus.Subscribe(ctx, s.topic, s.handler); err != nil {
			return errors.Wrap(errors.CodeInternal, "subscribe to "+s.topic, err)
		}
	}
	return nil
}

func (es *EventSubscriber) handleQueryProcessed(_ context.Context, event bus.Event) error {
	var p bus.QueryProcessedPayload
	if err := es.decode(event, &p); err != nil {
		return err
	}
	es.metrics.RecordQuery(p.Intent, p.Confidence, p.Complexity, p.SubQueries)
	return nil
}

func (es *EventSubscriber) handleSearchCompleted(_ context.Context, event bus.Event) error {
	var p bus.SearchCompletedPayload
	if err := es.decode(event, &p); err != nil {
		return err
	}
	es.metrics.RecordSearch(p.Intent, p.DurationMs, p.Candidates, p.Results, p.Diversity)
	return nil
}

func (es *EventSubscriber) handleIndexCompleted(_ context.Context, event bus.Event) error {
	var p bus.IndexCompletedPayload
	if err := es.decode(event, &p); err != nil {
		return err
	}
	es.metrics.RecordIndex(p.Files, p.Chunks, p.Failed, p.DurationMs)
	return nil
}

// decode accepts the typed payloads published in-process and the generic
// maps produced when events arrive over Kafka.
func (es *EventSubscriber) decode(event bus.Event, dst any) error {
	switch p := event.Payload.(type) {
	case bus.QueryProcessedPayload:
		if d, ok := dst.(*bus.QueryProcessedPayload); ok {
			*d = p
			return nil
		}
	case bus.SearchCompletedPayload:
		if d, ok := dst.(*bus.SearchCompletedPayload); ok {
			*d = p
			return nil
		}
	case bus.IndexCompletedPayload:
		if d, ok := dst.(*bus.IndexCompletedPayload); ok {
			*d = p
			return nil
		}
	}

	raw, err := json.Marshal(event.Payload)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		es.metrics.DecodeErrors.WithLabels(event.Type).Inc()
		return errors.Wrap(errors.CodeValidation, "decode "+event.Type+" payload", err)
	}
	return nil
}
