package pubsub

import (
	"context"
	"time"
)

// Pack is the unit of delivery: Key routes the message to a partition,
// Msg carries the serialized payload.
type Pack struct {
	Key []byte
	Msg []byte
}

type SubscribeHandler func(context.Context, *Pack, time.Time)

type Publisher interface {
	Publish(ctx context.Context, topic string, pack *Pack) error
	Stop(ctx context.Context) error
}

type Subscriber interface {
	Subscribe(ctx context.Context)
	Stop(ctx context.Context) error
}
