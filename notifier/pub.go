package notifier

import (
	"encoding/json"

	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/transaction"
)

// Publisher provides functionality to push messages to the pub/sub queue.
type Publisher struct {
	*socket
}

// PublisherConnect connects publisher to the pub/sub queue using provided config.
func PublisherConnect(cfg Config) (*Publisher, error) {
	var p Publisher
	var err error
	p.socket, err = connect(cfg)
	return &p, err
}

// PublishNewTransaction publishes a transaction that was created in the dashboard.
func (p *Publisher) PublishNewTransaction(trx *transaction.Transaction) error {
	msg, err := json.Marshal(trx)
	if err != nil {
		return err
	}
	return p.conn.Publish(PubSubNewTransaction, msg)
}

// PublishDueReminders publishes the reminders that became due.
func (p *Publisher) PublishDueReminders(due []reminders.Reminder) error {
	msg, err := json.Marshal(due)
	if err != nil {
		return err
	}
	return p.conn.Publish(PubSubDueReminders, msg)
}
