package notify

import (
	"context"
	"fmt"

	"github.com/recipefox/recipefox/internal/pkg/jobqueue"
)

// JobEnqueuer is satisfied by *jobqueue.Queue.
type JobEnqueuer interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// MailNotifier queues the confirmation mail instead of sending it inline, so
// a slow SMTP server never holds up the payment callback.
type MailNotifier struct {
	queue JobEnqueuer
}

func NewMailNotifier(queue JobEnqueuer) *MailNotifier {
	return &MailNotifier{queue: queue}
}

func (m *MailNotifier) Notify(_ context.Context, ev Event) error {
	if ev.Type != EventPremiumActivated {
		return nil
	}

	payload := jobqueue.PremiumActivatedEmailPayload{
		SubscriberID:  ev.SubscriberID,
		TransactionID: ev.TransactionID,
		Amount:        ev.Amount.String(),
		Tier:          ev.Tier,
		ExpiryDate:    ev.ExpiryDate,
	}
	if _, err := m.queue.EnqueueJob(jobqueue.JobTypePremiumActivatedEmail, payload.ToMap()); err != nil {
		return fmt.Errorf("enqueue premium mail: %w", err)
	}
	return nil
}
