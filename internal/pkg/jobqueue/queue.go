package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/recipefox/recipefox/internal/pkg/cache"
)

const (
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	// JobDelayedKey is a sorted set of job ids scored by their next attempt (unix seconds).
	JobDelayedKey = "job_delayed"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour

	popTimeout      = time.Second
	promoteInterval = 5 * time.Second
	stuckAfter      = 10 * time.Minute
)

// Queue runs background jobs out of Redis. A worker moves an id from
// job_queue to job_processing while it holds it; a failed attempt parks the
// id in job_delayed until its retry is due.
type Queue struct {
	client  *redis.Client
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a queue on the shared cache client
func NewQueue(workers int) *Queue {
	return NewQueueWithClient(cache.GetClient(), workers)
}

func NewQueueWithClient(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	return &Queue{
		client:  client,
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start requeues jobs a crashed process left behind, then starts the workers
// and the retry scheduler.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})

	if n, err := q.recoverStuck(context.Background(), time.Now()); err != nil {
		log.Errorf("[JobQueue] Recovering stuck jobs failed: %v", err)
	} else if n > 0 {
		log.Warnf("[JobQueue] Requeued %d stuck jobs", n)
	}

	log.Infof("[JobQueue] Starting %d workers", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(1)
	go q.scheduler()
}

func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		job, err := q.next(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Worker %d: dequeue failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		q.process(ctx, job)
	}
}

// scheduler moves due retries back onto the queue.
func (q *Queue) scheduler() {
	defer q.wg.Done()
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case now := <-ticker.C:
			if _, err := q.promoteDue(context.Background(), now); err != nil {
				log.Errorf("[JobQueue] Promoting delayed jobs failed: %v", err)
			}
		}
	}
}

func (q *Queue) EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error) {
	ctx := context.Background()
	now := time.Now()

	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return job, nil
}

// next blocks up to popTimeout for a job and returns redis.Nil when none came.
func (q *Queue) next(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, popTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) run(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypePremiumActivatedEmail:
		return q.processPremiumActivatedEmailJob(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (q *Queue) process(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.save(ctx, job)

	err := q.run(ctx, job)
	if err == nil {
		pipe := q.client.TxPipeline()
		pipe.Del(ctx, JobKeyPrefix+job.ID)
		pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
		if _, perr := pipe.Exec(ctx); perr != nil {
			log.Errorf("[JobQueue] Cleaning up job %s failed: %v", job.ID, perr)
		}
		log.Infof("[JobQueue] Job %s done", job.ID)
		return
	}

	job.MarkAsFailed(err.Error())
	q.save(ctx, job)

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
	if job.IsRetryable() {
		retryAt := time.Now().Add(time.Duration(job.RetryCount) * time.Minute)
		pipe.ZAdd(ctx, JobDelayedKey, redis.Z{Score: float64(retryAt.Unix()), Member: job.ID})
		log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), retry at %s: %v",
			job.ID, job.RetryCount, job.MaxRetries, retryAt.Format(time.RFC3339), err)
	} else {
		log.Errorf("[JobQueue] Job %s gave up after %d attempts: %v", job.ID, job.RetryCount, err)
	}
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Errorf("[JobQueue] Rescheduling job %s failed: %v", job.ID, perr)
	}
}

// promoteDue requeues delayed jobs whose retry time is at or before now.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.ZRangeByScore(ctx, JobDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		// ZRem decides which instance gets to requeue it
		removed, err := q.client.ZRem(ctx, JobDelayedKey, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, JobQueueKey, id).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// recoverStuck puts back jobs that have sat in processing longer than stuckAfter.
func (q *Queue) recoverStuck(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			q.client.LRem(ctx, JobProcessingKey, 1, id)
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) < stuckAfter {
			continue
		}

		job.Status = JobStatusPending
		job.UpdatedAt = now
		q.save(ctx, job)

		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, JobProcessingKey, 1, id)
		pipe.RPush(ctx, JobQueueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Saving job %s failed: %v", job.ID, err)
	}
}

func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// Depth reports how many jobs are waiting, running and waiting for a retry.
type Depth struct {
	Pending    int64
	Processing int64
	Delayed    int64
}

func (q *Queue) Depth(ctx context.Context) (Depth, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, JobQueueKey)
	processing := pipe.LLen(ctx, JobProcessingKey)
	delayed := pipe.ZCard(ctx, JobDelayedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Depth{}, err
	}
	return Depth{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
	}, nil
}
