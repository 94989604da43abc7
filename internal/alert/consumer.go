package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"vigil/internal/config"
	"vigil/internal/dao"
	"vigil/pkg/log"
)

// Handler receives every decoded alert. A returned error requeues the message.
type Handler func(ctx context.Context, alert *dao.DetectionAlert) error

type Consumer struct {
	conf     config.NSQConfig
	ctx      context.Context
	cancel   context.CancelFunc
	consumer *nsq.Consumer
	handler  Handler
	wg       sync.WaitGroup
	logger   *logrus.Entry
}

func NewConsumer(ctx context.Context, conf config.NSQConfig, handler Handler) (*Consumer, error) {
	ctx, cancel := context.WithCancel(ctx)

	nsqConf := nsq.NewConfig()
	nsqConf.MsgTimeout = time.Minute
	nsqConf.MaxInFlight = 10
	nsqConf.MaxAttempts = 2

	consumer, err := nsq.NewConsumer(conf.Topic, conf.Channel, nsqConf)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}

	c := newConsumer(ctx, cancel, conf, handler)
	c.consumer = consumer
	consumer.AddHandler(c)
	return c, nil
}

func newConsumer(ctx context.Context, cancel context.CancelFunc, conf config.NSQConfig, handler Handler) *Consumer {
	return &Consumer{
		conf:    conf,
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
		logger:  log.Component(ctx, "alert-consumer"),
	}
}

func (c *Consumer) HandleMessage(message *nsq.Message) error {
	message.DisableAutoResponse()

	var alert dao.DetectionAlert
	if err := json.Unmarshal(message.Body, &alert); err != nil {
		// malformed payloads never become valid, drop them
		c.logger.WithError(err).Error("failed to unmarshal alert")
		message.Finish()
		return nil
	}

	c.logger.WithFields(logrus.Fields{
		"kind":     alert.SourceKind,
		"id":       alert.SourceId,
		"t":        alert.T,
		"hitCount": len(alert.Hits),
	}).Debug("processing alert")

	if err := c.handler(c.ctx, &alert); err != nil {
		c.logger.WithError(err).Warnf("handle alert of %s %d failed", alert.SourceKind, alert.SourceId)
		message.Requeue(-1)
		return nil
	}
	message.Finish()
	return nil
}

func (c *Consumer) Start() error {
	addrs := c.conf.NSQDAddrs
	if len(addrs) == 0 && c.conf.NSQDAddr != "" {
		addrs = []string{c.conf.NSQDAddr}
	}
	if err := c.consumer.ConnectToNSQDs(addrs); err != nil {
		return fmt.Errorf("failed to connect to NSQs: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.consumer.Stop()
		<-c.consumer.StopChan
	}()
	return nil
}

func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()
}
