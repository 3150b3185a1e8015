package task

import (
	"context"

	"github.com/hibiken/asynq"
)

// PeriodicRegistrar is the slice of *asynq.Scheduler used to register cron
// entries.
type PeriodicRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// HandlerRegistrar is the slice of *asynq.ServeMux used to bind task
// handlers.
type HandlerRegistrar interface {
	HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error)
}
