package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/referlab/backend/pkg/kafka"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startWorker(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
	s.loadProcessor()

	// The session context of the consumer group has no dependencies, so
	// handlers run on the service context instead.
	handler := func(_ context.Context, pack *pubsub.Pack, t time.Time) {
		s.processor.Subscribe(s.ctx, pack, t)
	}

	subscriber, err := kafka.NewSubscriber(
		s.configs.Kafka.ConsumerGroup,
		[]string{s.configs.Kafka.Addr},
		[]string{s.configs.Kafka.JobTopic},
		handler,
	)
	if err != nil {
		panic(err)
	}
	s.subscriber = subscriber

	xcontext.Logger(s.ctx).Infof("Starting worker on topic %s", s.configs.Kafka.JobTopic)
	s.subscriber.Subscribe(s.ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.subscriber.Stop(s.ctx)
}
