package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the subset of asynq.Client the handlers need to queue
// follow-up work. Tests substitute a recording mock.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
