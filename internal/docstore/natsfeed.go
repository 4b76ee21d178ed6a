package docstore

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const changeSubjectPrefix = "docs.changed."

// NATSNotifier distributes change signals over NATS so that live queries
// stay current across multiple server instances.
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier connects to NATS with infinite reconnects.
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSNotifier{nc: nc}, nil
}

func (n *NATSNotifier) Notify(collection string) {
	if err := n.nc.Publish(changeSubjectPrefix+collection, nil); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("failed to publish change signal")
	}
}

func (n *NATSNotifier) Watch(collection string) (<-chan struct{}, func()) {
	out := make(chan struct{}, 1)

	sub, err := n.nc.Subscribe(changeSubjectPrefix+collection, func(*nats.Msg) {
		select {
		case out <- struct{}{}:
		default:
		}
	})
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("failed to subscribe to change feed")
		close(out)
		return out, func() {}
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				log.Error().Err(err).Msg("failed to unsubscribe from change feed")
			}
		})
	}
	return out, stop
}

// Close drains the underlying connection.
func (n *NATSNotifier) Close() {
	n.nc.Close()
}
