package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the pub/sub channel all storefront events go through.
const DefaultChannel = "storefront-events"

const publishTimeout = 2 * time.Second

// RedisEmitter publishes events to a Redis channel.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEmitter{client: client, channel: channel}
}

func (r *RedisEmitter) Emit(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("event", e.Name).Msg("marshal event")
		return
	}

	// the request may be finished by the time the publish runs
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		log.Error().Err(err).Str("event", e.Name).Str("channel", r.channel).Msg("publish event")
		return
	}
	log.Debug().Str("event", e.Name).Str("entity", e.EntityID).Msg("event published")
}

// Handler processes one event.
type Handler func(ctx context.Context, e Event) error

// Worker subscribes to the event channel and dispatches events by name.
type Worker struct {
	client   *redis.Client
	channel  string
	handlers map[string][]Handler
}

func NewWorker(client *redis.Client, channel string) *Worker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Worker{client: client, channel: channel, handlers: make(map[string][]Handler)}
}

// On registers h for the named events.
func (w *Worker) On(h Handler, names ...string) {
	for _, name := range names {
		w.handlers[name] = append(w.handlers[name], h)
	}
}

// Run consumes events until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	sub := w.client.Subscribe(ctx, w.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Info().Str("channel", w.channel).Msg("event worker listening")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			w.dispatch(ctx, []byte(msg.Payload))
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, payload []byte) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		log.Warn().Err(err).Msg("drop malformed event")
		return
	}
	for _, h := range w.handlers[e.Name] {
		if err := h(ctx, e); err != nil {
			log.Error().Err(err).Str("event", e.Name).Str("entity", e.EntityID).Msg("event handler failed")
		}
	}
}

// Emit dispatches e to the registered handlers in-process, so a Worker
// serves as the Emitter when no Redis server is configured.
func (w *Worker) Emit(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("event", e.Name).Msg("marshal event")
		return
	}
	w.dispatch(context.WithoutCancel(ctx), data)
}
