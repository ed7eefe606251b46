package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipefox/recipefox/internal/pkg/env"
	"github.com/recipefox/recipefox/internal/pkg/jobqueue"
	"github.com/recipefox/recipefox/internal/pkg/notify"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

type countingQueue struct{ jobs int }

func (q *countingQueue) EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	q.jobs++
	return &jobqueue.Job{Type: jobType, Payload: payload}, nil
}

func TestMetricsUsers(t *testing.T) {
	withEnv(t, map[string]string{})
	assert.Nil(t, metricsUsers())

	withEnv(t, map[string]string{"METRICS_PASSWORD": "scrape"})
	assert.Equal(t, map[string]string{"admin": "scrape"}, metricsUsers())
}

func TestNewNotifier_MailOnlyWithoutKafka(t *testing.T) {
	withEnv(t, map[string]string{})
	queue := &countingQueue{}

	n, closers := newNotifier(queue)
	assert.Empty(t, closers)
	require.NoError(t, n.Notify(context.Background(), notify.Event{
		Type:          notify.EventPremiumActivated,
		SubscriberID:  7,
		TransactionID: "PREMIUM-7-1792139400000",
		Tier:          "monthly",
	}))
	assert.Equal(t, 1, queue.jobs)
}

func TestFindBasePath(t *testing.T) {
	assert.Equal(t, "../../", findBasePath())
}
