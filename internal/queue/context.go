package queue

import "context"

type jobStateKey struct{}

type jobState struct {
	job     *Job
	batches BatchStore
}

func withJobState(ctx context.Context, job *Job, batches BatchStore) context.Context {
	return context.WithValue(ctx, jobStateKey{}, &jobState{job: job, batches: batches})
}

// JobFromContext returns the job a handler is running, if any.
func JobFromContext(ctx context.Context) *Job {
	st, ok := ctx.Value(jobStateKey{}).(*jobState)
	if !ok {
		return nil
	}
	return st.job
}

// Cancelled reports whether the batch of the running job has been cancelled. Handlers
// check it before doing work; lookups that fail count as not cancelled.
func Cancelled(ctx context.Context) bool {
	st, ok := ctx.Value(jobStateKey{}).(*jobState)
	if !ok || st.job.BatchID == "" || st.batches == nil {
		return false
	}
	cancelled, err := st.batches.Cancelled(ctx, st.job.BatchID)
	return err == nil && cancelled
}
