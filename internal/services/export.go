package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

// ErrInvalidExportID is returned for export ids that are not ULIDs.
var ErrInvalidExportID = errors.New("invalid export id")

const exportContentType = "application/json"

// ObjectStore is the subset of storage.Storage used for exports.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// TaskLister lists the tasks of one owner.
type TaskLister interface {
	ListForOwner(ctx context.Context, ownerID int64) ([]types.Task, error)
}

type exportDocument struct {
	ID        string       `json:"id"`
	OwnerID   int64        `json:"owner_id"`
	CreatedAt time.Time    `json:"created_at"`
	Tasks     []types.Task `json:"tasks"`
}

// ExportService writes task snapshots to object storage.
type ExportService struct {
	tasks   TaskLister
	objects ObjectStore
	now     func() time.Time
}

func NewExportService(tasks TaskLister, objects ObjectStore) *ExportService {
	return &ExportService{tasks: tasks, objects: objects, now: time.Now}
}

// Create snapshots every task of ownerID into a new object.
func (s *ExportService) Create(ctx context.Context, ownerID int64) (types.TaskExport, error) {
	tasks, err := s.tasks.ListForOwner(ctx, ownerID)
	if err != nil {
		return types.TaskExport{}, err
	}

	doc := exportDocument{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		CreatedAt: s.now().UTC(),
		Tasks:     tasks,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return types.TaskExport{}, err
	}

	key := exportKey(ownerID, doc.ID)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return types.TaskExport{}, fmt.Errorf("upload export: %w", err)
	}

	return types.TaskExport{
		ID:        doc.ID,
		Key:       key,
		Count:     len(tasks),
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Open returns a reader for an export of ownerID. Exports of other owners
// live under a different key and are never reachable.
func (s *ExportService) Open(ctx context.Context, ownerID int64, exportID string) (io.ReadCloser, error) {
	id, err := ulid.ParseStrict(exportID)
	if err != nil {
		return nil, ErrInvalidExportID
	}
	return s.objects.Get(ctx, exportKey(ownerID, id.String()))
}

// Delete removes an export of ownerID.
func (s *ExportService) Delete(ctx context.Context, ownerID int64, exportID string) error {
	id, err := ulid.ParseStrict(exportID)
	if err != nil {
		return ErrInvalidExportID
	}
	return s.objects.Delete(ctx, exportKey(ownerID, id.String()))
}

func exportKey(ownerID int64, id string) string {
	return fmt.Sprintf("exports/%d/%s.json", ownerID, id)
}
