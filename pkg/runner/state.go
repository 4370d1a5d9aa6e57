package runner

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/denismitr/lemon"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
)

// TaskState is what the runner remembers about a completed task: the
// digest of each file dependency and of the configuration that drove
// it. A task whose recorded state matches the world is up to date.
type TaskState struct {
	FileDeps map[string]string `json:"file_deps"`
	Digest   string            `json:"digest,omitempty"`
}

// StateStore persists task state between runs.
type StateStore interface {
	Get(ctx context.Context, taskID string) (TaskState, bool, error)
	Put(ctx context.Context, taskID string, state TaskState) error
	Forget(ctx context.Context, taskID string) error
	Close() error
}

const taskKeyPrefix = "task:"

// LemonStore keeps task state in an embedded lemon database. The
// database file is keyed by run id at the config layer, so separate
// runs never share (and never clash over) state.
type LemonStore struct {
	db     *lemon.DB
	closer lemon.Closer
}

// OpenLemonStore opens (creating if needed) the database at path.
func OpenLemonStore(path paths.Path) (*LemonStore, error) {
	if err := os.MkdirAll(path.Dir().String(), 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "creating %s", path.Dir())
	}

	db, closer, err := lemon.Open(path.String())
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateAccess, "opening state database %s", path)
	}

	return &LemonStore{db: db, closer: closer}, nil
}

// Get implements StateStore.
func (s *LemonStore) Get(ctx context.Context, taskID string) (TaskState, bool, error) {
	var state TaskState
	found := false

	err := s.db.View(ctx, func(tx *lemon.Tx) error {
		doc, err := tx.Get(taskKeyPrefix + taskID)
		if err != nil {
			if errors.Is(err, lemon.ErrKeyDoesNotExist) {
				return nil
			}
			return err
		}

		if err := json.Unmarshal(doc.Value(), &state); err != nil {
			return err
		}
		found = true

		return nil
	})
	if err != nil {
		return TaskState{}, false, errors.Wrapf(err, errors.ErrStateAccess, "reading state for %s", taskID)
	}

	return state, found, nil
}

// Put implements StateStore.
func (s *LemonStore) Put(ctx context.Context, taskID string, state TaskState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStateAccess, "encoding state for %s", taskID)
	}

	err = s.db.Update(ctx, func(tx *lemon.Tx) error {
		return tx.InsertOrReplace(taskKeyPrefix+taskID, encoded)
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrStateAccess, "saving state for %s", taskID)
	}
	return nil
}

// Forget implements StateStore.
func (s *LemonStore) Forget(ctx context.Context, taskID string) error {
	err := s.db.Update(ctx, func(tx *lemon.Tx) error {
		if err := tx.Remove(taskKeyPrefix + taskID); err != nil {
			if errors.Is(err, lemon.ErrKeyDoesNotExist) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrStateAccess, "forgetting state for %s", taskID)
	}
	return nil
}

// Close implements StateStore.
func (s *LemonStore) Close() error {
	return s.closer()
}

// MemoryStore is an in-memory StateStore for tests and dry runs. Safe
// for concurrent use; the runner's workers save state in parallel.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]TaskState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]TaskState)}
}

// Get implements StateStore.
func (s *MemoryStore) Get(_ context.Context, taskID string) (TaskState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[taskID]
	return state, ok, nil
}

// Put implements StateStore.
func (s *MemoryStore) Put(_ context.Context, taskID string, state TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[taskID] = state
	return nil
}

// Forget implements StateStore.
func (s *MemoryStore) Forget(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, taskID)
	return nil
}

// Close implements StateStore.
func (s *MemoryStore) Close() error { return nil }
