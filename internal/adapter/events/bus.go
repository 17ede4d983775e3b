package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/realtime"
)

// Bus publishes and delivers table change notifications over NATS.
// Each table maps to the subject <prefix>.<table>.
type Bus struct {
	conn   *nats.Conn
	prefix string
	logger *logrus.Logger
}

// NewBus creates a new NATS-backed change bus
func NewBus(conn *nats.Conn, prefix string, logger *logrus.Logger) *Bus {
	return &Bus{
		conn:   conn,
		prefix: prefix,
		logger: logger,
	}
}

// Subject returns the subject carrying changes for table
func (b *Bus) Subject(table string) string {
	return fmt.Sprintf("%s.%s", b.prefix, table)
}

// Publish emits change on its table's subject
func (b *Bus) Publish(change realtime.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("error marshaling change: %w", err)
	}

	if err := b.conn.Publish(b.Subject(change.Table), data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", b.Subject(change.Table), err)
	}

	return nil
}

// Subscribe delivers changes for table to onChange until unsubscribe is called
func (b *Bus) Subscribe(table string, onChange func(realtime.Change)) (func(), error) {
	sub, err := b.conn.Subscribe(b.Subject(table), func(msg *nats.Msg) {
		change, err := decode(msg.Data)
		if err != nil {
			b.logger.WithField("subject", msg.Subject).WithError(err).Warn("Dropping malformed change")
			return
		}
		onChange(change)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", table, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.WithField("table", table).WithError(err).Debug("Unsubscribe failed")
		}
	}, nil
}

func decode(data []byte) (realtime.Change, error) {
	var change realtime.Change
	if err := json.Unmarshal(data, &change); err != nil {
		return realtime.Change{}, fmt.Errorf("error unmarshaling change: %w", err)
	}
	if change.Table == "" {
		return realtime.Change{}, fmt.Errorf("change has no table")
	}
	return change, nil
}
