package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/xcontext"
)

// Enqueuer publishes job envelopes onto the job topic. The key routes all
// jobs of one referral to the same partition, so they are consumed in
// publishing order.
type Enqueuer struct {
	publisher pubsub.Publisher
}

func NewEnqueuer(publisher pubsub.Publisher) *Enqueuer {
	return &Enqueuer{publisher: publisher}
}

func (e *Enqueuer) Enqueue(ctx context.Context, name entity.JobType, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	job := model.Job{
		Name:       string(name),
		Payload:    b,
		EnqueuedAt: time.Now(),
	}

	msg, err := job.Marshal()
	if err != nil {
		return err
	}

	topic := xcontext.Configs(ctx).Kafka.JobTopic
	return e.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: msg})
}
