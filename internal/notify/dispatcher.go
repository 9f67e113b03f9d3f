package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	queueSize   = 64
	sendTimeout = 5 * time.Second
)

// Dispatcher decouples email delivery from the request path: Enqueue never
// blocks the caller, each send is bounded by a timeout, and failures are
// logged and dropped.
type Dispatcher struct {
	sender Sender
	queue  chan Message
	done   chan struct{}
}

func NewDispatcher(sender Sender) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan Message, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sender.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("notify: email delivery failed")
		} else {
			log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("notify: email sent")
		}
		cancel()
	}
}

// Enqueue hands a message to the background worker. When the queue is full
// the message is dropped rather than stalling the caller.
func (d *Dispatcher) Enqueue(to, subject, body string) {
	select {
	case d.queue <- Message{To: to, Subject: subject, Body: body}:
	default:
		log.Warn().Str("to", to).Str("subject", subject).Msg("notify: queue full, dropping email")
	}
}

// Close stops the worker after draining queued messages.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}
