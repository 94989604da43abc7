// Package alert carries detection alerts over NSQ.
package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"vigil/internal/config"
	"vigil/internal/dao"
	"vigil/pkg/log"
)

type producer interface {
	Publish(topic string, body []byte) error
	Stop()
}

type Publisher struct {
	topic    string
	producer producer
	logger   *logrus.Entry
}

func NewPublisher(ctx context.Context, conf config.NSQConfig) (*Publisher, error) {
	p, err := nsq.NewProducer(conf.NSQDAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create NSQ producer failed: %w", err)
	}
	return newPublisher(ctx, conf.Topic, p), nil
}

func newPublisher(ctx context.Context, topic string, p producer) *Publisher {
	return &Publisher{
		topic:    topic,
		producer: p,
		logger:   log.Component(ctx, "alert"),
	}
}

func (p *Publisher) Publish(ctx context.Context, alert *dao.DetectionAlert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := p.producer.Publish(p.topic, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	p.logger.Debugf("published alert of %s %d at %.3f", alert.SourceKind, alert.SourceId, alert.T)
	return nil
}

func (p *Publisher) Stop() {
	p.producer.Stop()
}
