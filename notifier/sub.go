package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/notepay/notepay/logger"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/transaction"
)

// Subscriber provides functionality to pull messages from the pub/sub queue.
type Subscriber struct {
	*socket
}

// SubscriberConnect connects subscriber to the pub/sub queue using provided config.
func SubscriberConnect(cfg Config) (*Subscriber, error) {
	var s Subscriber
	var err error
	s.socket, err = connect(cfg)
	return &s, err
}

// SubscribeNewTransaction subscribes to transactions created in the dashboard.
func (s *Subscriber) SubscribeNewTransaction(call func(trx *transaction.Transaction), log logger.Logger) error {
	_, err := s.conn.Subscribe(PubSubNewTransaction, func(m *nats.Msg) {
		var trx transaction.Transaction
		if err := json.Unmarshal(m.Data, &trx); err != nil {
			log.Error(fmt.Sprintf("subscriber failed to unmarshal transaction: %s", err))
			return
		}
		call(&trx)
	})
	return err
}

// SubscribeDueReminders subscribes to reminders surfaced as due.
func (s *Subscriber) SubscribeDueReminders(call func(due []reminders.Reminder), log logger.Logger) error {
	_, err := s.conn.Subscribe(PubSubDueReminders, func(m *nats.Msg) {
		var due []reminders.Reminder
		if err := json.Unmarshal(m.Data, &due); err != nil {
			log.Error(fmt.Sprintf("subscriber failed to unmarshal reminders: %s", err))
			return
		}
		call(due)
	})
	return err
}
