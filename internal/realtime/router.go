package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// redisChannel carries room events between instances; each instance
// re-broadcasts into its local hub.
const redisChannel = "realtime_events"

type envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Router publishes events to topic-scoped rooms. With a redis client the
// event takes a round trip through pub/sub so every instance's hub delivers
// it; without one, delivery is local only. Failures are logged, never
// returned: realtime push is a side channel, not part of any request's
// success criteria.
type Router struct {
	hub *Hub
	rdb *redis.Client
}

func NewRouter(hub *Hub, rdb *redis.Client) *Router {
	return &Router{hub: hub, rdb: rdb}
}

func (r *Router) Hub() *Hub {
	return r.hub
}

func (r *Router) Publish(ctx context.Context, room, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("realtime: failed to marshal %s payload: %v", event, err)
		return
	}

	if r.rdb == nil {
		r.deliver(envelope{Room: room, Event: event, Data: raw})
		return
	}

	payload, _ := json.Marshal(envelope{Room: room, Event: event, Data: raw})
	if err := r.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
		log.Printf("realtime: redis publish failed, delivering locally: %v", err)
		r.deliver(envelope{Room: room, Event: event, Data: raw})
	}
}

// Run subscribes to the shared redis channel and pumps events into the local
// hub until ctx is cancelled. No-op without redis.
func (r *Router) Run(ctx context.Context) {
	if r.rdb == nil {
		return
	}

	pubsub := r.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("realtime: failed to subscribe to %s: %v", redisChannel, err)
		return
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("realtime: dropping malformed event: %v", err)
				continue
			}
			r.deliver(env)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) deliver(env envelope) {
	out, _ := json.Marshal(message{Event: env.Event, Data: env.Data})
	r.hub.Broadcast(env.Room, out)
}
