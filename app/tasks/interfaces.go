package tasks

// TaskSchedulerInterface is the task-queue contract the rest of the service
// relies on: accepted tasks are eventually executed at least once, with
// failed tasks redelivered until their retry budget runs out.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	ScheduleAll() (int, error)
}
