package mqtt

import (
	"context"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/sensor"
	"github.com/parkpulse/parkpulse/infra/logger"
)

// MessageHandler consumes one raw sensor message. Implemented by
// sensor.Handler.
type MessageHandler interface {
	HandleMessage(topic string, payload []byte)
}

type rawMessage struct {
	topic   string
	payload []byte
}

// Ingestor bridges the broker callback and the registry mutation path: the
// Paho callback only enqueues into a bounded queue, a single consumer
// goroutine decodes and applies mutations synchronously per message. A full
// queue sheds messages instead of backpressuring the broker session.
type Ingestor struct {
	cli     *Client
	handler MessageHandler
	queue   chan rawMessage
	sink    metrics.Sink
	log     logger.Logger
}

// NewIngestor creates an Ingestor with the given queue capacity.
func NewIngestor(cli *Client, handler MessageHandler, queueSize int, sink metrics.Sink, log logger.Logger) *Ingestor {
	if queueSize <= 0 {
		queueSize = 256
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Ingestor{
		cli:     cli,
		handler: handler,
		queue:   make(chan rawMessage, queueSize),
		sink:    sink,
		log:     log,
	}
}

// Start subscribes to the sensor topic hierarchy and consumes messages until
// ctx is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	if err := i.cli.Subscribe(sensor.SubscribeFilter(), i.onMessage); err != nil {
		return err
	}
	if i.log != nil {
		i.log.Infof("subscribed to %s", sensor.SubscribeFilter())
	}
	i.Run(ctx)
	return nil
}

func (i *Ingestor) onMessage(_ paho.Client, msg paho.Message) {
	// Copy the payload: Paho reuses its buffer after the callback returns.
	payload := append([]byte(nil), msg.Payload()...)
	i.Enqueue(msg.Topic(), payload)
}

// Enqueue adds one raw message to the bounded queue without blocking.
func (i *Ingestor) Enqueue(topic string, payload []byte) {
	select {
	case i.queue <- rawMessage{topic: topic, payload: payload}:
	default:
		i.sink.RecordSensorEvent(metrics.SensorDropped)
		if i.log != nil {
			i.log.Warnf("ingestion queue full, dropping message on %s", topic)
		}
	}
}

// Run drains the queue until ctx is cancelled.
func (i *Ingestor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-i.queue:
			i.handler.HandleMessage(msg.topic, msg.payload)
		}
	}
}
