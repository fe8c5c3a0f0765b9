// Package fanout distributes one measurement stream to several consumers. Each
// subscriber sees every notification in publish order, and a publish returns only once
// every subscriber has taken it.
package fanout

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
)

const topic = "measurements"

// ErrTerminated is returned when publishing to a subject that has completed or failed.
var ErrTerminated = errors.New("subject already terminated")

var codec = sonic.ConfigStd

// Kind is the kind of a Notification.
type Kind int

const (
	// Next carries a measurement.
	Next Kind = iota
	// Completed ends the stream normally.
	Completed
	// Error ends the stream with an error.
	Error
)

var kindNames = map[Kind]string{
	Next:      "next",
	Completed: "completed",
	Error:     "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// A Notification is one event delivered to subscribers.
type Notification struct {
	Kind        Kind
	Measurement measurement.Measurement
	Err         error
}

// envelope is the wire form of a Notification.
type envelope struct {
	Kind        string                   `json:"kind"`
	Measurement *measurement.Measurement `json:"measurement,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// A Subject is a multicast distribution point for measurements. Subscribers must attach
// before the first publish; notifications published with no subscriber are dropped.
type Subject struct {
	pubSub *gochannel.GoChannel
	logger logging.Logger

	mu         sync.Mutex
	terminated bool
}

// NewSubject returns a subject backed by an in-process pub/sub.
func NewSubject(logger logging.Logger) *Subject {
	return &Subject{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{BlockPublishUntilSubscriberAck: true},
			logging.NewWatermillAdapter(logger.Sublogger("watermill")),
		),
		logger: logger,
	}
}

// OnNext publishes a measurement.
func (s *Subject) OnNext(m measurement.Measurement) error {
	return s.publish(envelope{Kind: Next.String(), Measurement: &m}, false)
}

// OnCompleted publishes the normal end of the stream.
func (s *Subject) OnCompleted() error {
	return s.publish(envelope{Kind: Completed.String()}, true)
}

// OnError publishes the failure of the stream.
func (s *Subject) OnError(err error) error {
	return s.publish(envelope{Kind: Error.String(), Error: err.Error()}, true)
}

func (s *Subject) publish(env envelope, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrTerminated
	}
	s.terminated = terminal

	payload, err := codec.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	msg := message.NewMessage(newID(), payload)
	s.logger.Debugw("publishing", "kind", env.Kind, "id", msg.UUID)
	return s.pubSub.Publish(topic, msg)
}

// Subscribe returns the notifications published after this call. The channel is closed
// after a terminal notification or when ctx is done.
func (s *Subject) Subscribe(ctx context.Context) (<-chan Notification, error) {
	messages, err := s.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan Notification)
	goutils.PanicCapturingGo(func() {
		defer close(out)
		for msg := range messages {
			n, err := decode(msg.Payload)
			if err != nil {
				s.logger.Errorw("dropping undecodable notification", "id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- n:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
			if n.Kind != Next {
				return
			}
		}
	})
	return out, nil
}

func decode(payload []byte) (Notification, error) {
	var env envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return Notification{}, err
	}
	switch env.Kind {
	case Next.String():
		if env.Measurement == nil {
			return Notification{}, errors.New("next notification without a measurement")
		}
		return Notification{Kind: Next, Measurement: *env.Measurement}, nil
	case Completed.String():
		return Notification{Kind: Completed}, nil
	case Error.String():
		return Notification{Kind: Error, Err: errors.New(env.Error)}, nil
	default:
		return Notification{}, errors.Errorf("unknown notification kind %q", env.Kind)
	}
}

// Close tears down the subject and every subscription.
func (s *Subject) Close() error {
	return s.pubSub.Close()
}
