package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipefox/recipefox/app/models"
)

type sentMail struct {
	to, subject, body string
}

type mailbox struct {
	mu   sync.Mutex
	msgs []sentMail
}

func (m *mailbox) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.msgs...)
}

func stubMailDeps(t *testing.T, user *models.User, sendErr error) *mailbox {
	t.Helper()

	prevSend, prevFind := sendMail, findUser
	t.Cleanup(func() {
		sendMail, findUser = prevSend, prevFind
	})

	box := &mailbox{}
	sendMail = func(to, subject, body string) error {
		box.mu.Lock()
		defer box.mu.Unlock()
		box.msgs = append(box.msgs, sentMail{to: to, subject: subject, body: body})
		return sendErr
	}
	findUser = func(id uint) (*models.User, error) {
		if user == nil || user.ID != id {
			return nil, errors.New("record not found")
		}
		return user, nil
	}
	return box
}

func premiumJob(subscriberID uint) *Job {
	return &Job{
		ID:   "job-1",
		Type: JobTypePremiumActivatedEmail,
		Payload: PremiumActivatedEmailPayload{
			SubscriberID:  subscriberID,
			TransactionID: "PREMIUM-7-1792139400000",
			Amount:        "500",
			Tier:          "yearly",
			ExpiryDate:    time.Date(2027, 10, 16, 0, 0, 0, 0, time.UTC),
		}.ToMap(),
		MaxRetries: DefaultMaxRetries,
	}
}

func TestProcessPremiumActivatedEmailJob(t *testing.T) {
	sent := stubMailDeps(t, &models.User{ID: 7, Name: "Anna <Chef>", Email: "anna@example.com"}, nil)

	q := &Queue{}
	err := q.processPremiumActivatedEmailJob(context.Background(), premiumJob(7))
	require.NoError(t, err)

	msgs := sent.all()
	require.Len(t, msgs, 1)
	mail := msgs[0]
	assert.Equal(t, "anna@example.com", mail.to)
	assert.Contains(t, mail.subject, "Premium")
	assert.Contains(t, mail.body, "Anna &lt;Chef&gt;")
	assert.Contains(t, mail.body, "2027-10-16")
	assert.Contains(t, mail.body, "PREMIUM-7-1792139400000")
}

func TestProcessPremiumActivatedEmailJob_Failures(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		job     *Job
		sendErr error
		wantErr bool
		wantNo  bool
	}{
		{"unknown subscriber", nil, premiumJob(7), nil, true, true},
		{"missing subscriber id", &models.User{ID: 7}, premiumJob(0), nil, true, true},
		{"no email is skipped", &models.User{ID: 7}, premiumJob(7), nil, false, true},
		{"smtp error is retried", &models.User{ID: 7, Email: "a@example.com"}, premiumJob(7), errors.New("dial tcp: refused"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := stubMailDeps(t, tt.user, tt.sendErr)

			err := (&Queue{}).processPremiumActivatedEmailJob(context.Background(), tt.job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNo {
				assert.Empty(t, sent.all())
			}
		})
	}
}

func TestQueue_PremiumEmailEndToEnd(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	sent := stubMailDeps(t, &models.User{ID: 7, Name: "Anna", Email: "anna@example.com"}, nil)

	q := NewQueueWithClient(client, 1)
	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobTypePremiumActivatedEmail, premiumJob(7).Payload)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, gerr := q.GetJob(context.Background(), job.ID)
		return gerr != nil // completed jobs are removed
	}, 5*time.Second, 20*time.Millisecond)

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Depth{}, depth)
	assert.Len(t, sent.all(), 1)
}

func TestQueue_FailedMailWaitsForRetry(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	stubMailDeps(t, &models.User{ID: 7, Email: "anna@example.com"}, errors.New("dial tcp: connection refused"))
	ctx := context.Background()

	q := NewQueueWithClient(client, 1)
	enqueued, err := q.EnqueueJob(JobTypePremiumActivatedEmail, premiumJob(7).Payload)
	require.NoError(t, err)

	job, err := q.next(ctx)
	require.NoError(t, err)
	require.Equal(t, enqueued.ID, job.ID)
	q.process(ctx, job)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, Depth{Delayed: 1}, depth)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	// not due yet
	moved, err := q.promoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)

	moved, err = q.promoteDue(ctx, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, Depth{Pending: 1}, depth)
}

func TestQueue_RecoverStuckJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()

	q := NewQueueWithClient(client, 1)
	_, err := q.EnqueueJob(JobTypePremiumActivatedEmail, premiumJob(7).Payload)
	require.NoError(t, err)

	job, err := q.next(ctx)
	require.NoError(t, err)
	job.MarkAsProcessing()
	q.save(ctx, job)

	recovered, err := q.recoverStuck(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, recovered, "a job that just started is left alone")

	recovered, err = q.recoverStuck(ctx, time.Now().Add(stuckAfter+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, Depth{Pending: 1}, depth)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}
