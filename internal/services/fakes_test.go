package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/storage"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]types.User
	err    error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]types.User{}}
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.IsActive = active
	r.users[id] = user
	return nil
}

type memTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]types.Task
	err    error
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[int64]types.Task{}}
}

func (r *memTaskRepo) ListForOwner(_ context.Context, ownerID int64) ([]types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	tasks := make([]types.Task, 0)
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (r *memTaskRepo) GetForOwner(_ context.Context, ownerID, taskID int64) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (r *memTaskRepo) Create(_ context.Context, ownerID int64, task types.Task) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.Task{}, r.err
	}
	r.nextID++
	task.ID = r.nextID
	task.OwnerID = ownerID
	r.tasks[task.ID] = task
	return task, nil
}

func (r *memTaskRepo) UpdateForOwner(_ context.Context, ownerID int64, task types.Task) (types.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tasks[task.ID]
	if !ok || current.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	task.OwnerID = ownerID
	r.tasks[task.ID] = task
	return task, nil
}

func (r *memTaskRepo) DeleteForOwner(_ context.Context, ownerID, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tasks[taskID]
	if !ok || current.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(r.tasks, taskID)
	return nil
}

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, published{channel: channel, data: data, attrs: attrs})
	return "msg-id", nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.attrs["type"])
	}
	return out
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (s *memObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}
