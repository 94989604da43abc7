package alert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"

	"vigil/internal/config"
	"vigil/internal/dao"
	"vigil/internal/model"
)

type fakeProducer struct {
	topic   string
	bodies  [][]byte
	err     error
	stopped bool
}

func (p *fakeProducer) Publish(topic string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *fakeProducer) Stop() { p.stopped = true }

type fakeDelegate struct {
	finished, requeued int
}

func (d *fakeDelegate) OnFinish(*nsq.Message) { d.finished++ }
func (d *fakeDelegate) OnRequeue(*nsq.Message, time.Duration, bool) { d.requeued++ }
func (d *fakeDelegate) OnTouch(*nsq.Message) {}

func newMessage(body []byte, d *fakeDelegate) *nsq.Message {
	var id nsq.MessageID
	copy(id[:], "0123456789abcdef")
	m := nsq.NewMessage(id, body)
	m.Delegate = d
	return m
}

func testAlert() *dao.DetectionAlert {
	return &dao.DetectionAlert{
		SourceKind: model.SourceKindCamera,
		SourceId:   3,
		T:          1700000000.5,
		Hits:       []dao.Hit{{Id: 1, X: 0.5, Y: 0.5, W: 0.1, H: 0.1, Confidence: 0.9}},
	}
}

func TestPublish(t *testing.T) {
	p := &fakeProducer{}
	pub := newPublisher(context.Background(), "detection_alerts", p)
	if err := pub.Publish(context.Background(), testAlert()); err != nil {
		t.Fatal(err)
	}
	if p.topic != "detection_alerts" || len(p.bodies) != 1 {
		t.Fatalf("topic %q, %d bodies", p.topic, len(p.bodies))
	}
	var got dao.DetectionAlert
	if err := json.Unmarshal(p.bodies[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.SourceId != 3 || got.Hits[0].Confidence != 0.9 {
		t.Errorf("got %+v", got)
	}

	p.err = errors.New("nsqd down")
	if err := pub.Publish(context.Background(), testAlert()); err == nil {
		t.Error("expected publish error")
	}
	pub.Stop()
	if !p.stopped {
		t.Error("producer not stopped")
	}
}

func TestHandleMessage(t *testing.T) {
	var received []*dao.DetectionAlert
	fail := false
	handler := func(ctx context.Context, alert *dao.DetectionAlert) error {
		if fail {
			return errors.New("busy")
		}
		received = append(received, alert)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newConsumer(ctx, cancel, config.NSQConfig{}, handler)

	body, _ := json.Marshal(testAlert())
	d := &fakeDelegate{}
	if err := c.HandleMessage(newMessage(body, d)); err != nil {
		t.Fatal(err)
	}
	if len(received) != 1 || d.finished != 1 {
		t.Fatalf("received %d, finished %d", len(received), d.finished)
	}

	fail = true
	d = &fakeDelegate{}
	c.HandleMessage(newMessage(body, d))
	if d.requeued != 1 || d.finished != 0 {
		t.Errorf("requeued %d, finished %d", d.requeued, d.finished)
	}

	d = &fakeDelegate{}
	c.HandleMessage(newMessage([]byte("{"), d))
	if d.finished != 1 {
		t.Errorf("malformed message finished %d", d.finished)
	}
}
