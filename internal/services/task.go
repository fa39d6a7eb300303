package services

import (
	"context"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

// TaskRepository defines owner-scoped persistence operations for tasks.
type TaskRepository interface {
	ListForOwner(ctx context.Context, ownerID int64) ([]types.Task, error)
	GetForOwner(ctx context.Context, ownerID, taskID int64) (types.Task, error)
	Create(ctx context.Context, ownerID int64, task types.Task) (types.Task, error)
	UpdateForOwner(ctx context.Context, ownerID int64, task types.Task) (types.Task, error)
	DeleteForOwner(ctx context.Context, ownerID, taskID int64) error
}

// TaskInput holds the client-controlled fields of a task. Every field is
// required; Completed is a pointer so an omitted flag can be told apart from
// false.
type TaskInput struct {
	Title       string
	Description string
	Priority    int
	Completed   *bool
}

func (in TaskInput) validate() error {
	verr := &ValidationError{}
	verr.lengthBetween("title", in.Title, types.TaskTitleMinLen, types.TaskTitleMaxLen)
	verr.lengthBetween("description", in.Description, types.TaskDescriptionMinLen, types.TaskDescriptionMaxLen)
	if in.Priority < types.TaskPriorityMin || in.Priority > types.TaskPriorityMax {
		verr.add("priority", "must be between %d and %d", types.TaskPriorityMin, types.TaskPriorityMax)
	}
	if in.Completed == nil {
		verr.add("complate", "is required")
	}
	return verr.err()
}

// TaskService encapsulates task use-cases. Every method takes the
// authenticated owner explicitly.
type TaskService struct {
	repo   TaskRepository
	events *EventPublisher
}

func NewTaskService(repo TaskRepository, events *EventPublisher) *TaskService {
	return &TaskService{repo: repo, events: events}
}

func (s *TaskService) List(ctx context.Context, ownerID int64) ([]types.Task, error) {
	return s.repo.ListForOwner(ctx, ownerID)
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID int64) (types.Task, error) {
	if taskID < 1 {
		return types.Task{}, store.ErrNotFound
	}
	return s.repo.GetForOwner(ctx, ownerID, taskID)
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, in TaskInput) (types.Task, error) {
	if err := in.validate(); err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.Create(ctx, ownerID, types.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Completed:   *in.Completed,
	})
	if err != nil {
		return types.Task{}, err
	}

	s.events.Publish(ctx, types.EventTaskCreated, ownerID, task.ID)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID int64, in TaskInput) (types.Task, error) {
	if err := in.validate(); err != nil {
		return types.Task{}, err
	}
	if taskID < 1 {
		return types.Task{}, store.ErrNotFound
	}

	task, err := s.repo.UpdateForOwner(ctx, ownerID, types.Task{
		ID:          taskID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Completed:   *in.Completed,
	})
	if err != nil {
		return types.Task{}, err
	}

	s.events.Publish(ctx, types.EventTaskUpdated, ownerID, taskID)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) error {
	if taskID < 1 {
		return store.ErrNotFound
	}
	if err := s.repo.DeleteForOwner(ctx, ownerID, taskID); err != nil {
		return err
	}

	s.events.Publish(ctx, types.EventTaskDeleted, ownerID, taskID)
	return nil
}
