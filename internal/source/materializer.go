package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Materializer makes a source's current content available locally.
type Materializer interface {
	Materialize(ctx context.Context, d Descriptor) (*FileSet, error)
}

// Serialized wraps a Materializer so that synchronizations of the same
// local path never overlap each other or any open FileSet on that path.
// Concurrent callers share one in-flight synchronization. The shared sync
// runs detached from any single caller's cancellation, bounded by timeout.
type Serialized struct {
	next    Materializer
	timeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewSerialized wraps next. A zero timeout leaves synchronizations unbounded.
func NewSerialized(next Materializer, timeout time.Duration) *Serialized {
	return &Serialized{
		next:    next,
		timeout: timeout,
		locks:   make(map[string]*sync.RWMutex),
	}
}

// Materialize synchronizes d (joining an in-flight sync of the same path
// if one exists) and returns a FileSet that holds the path's read lock
// until closed. If ctx ends first, ctx.Err() is returned and the shared
// synchronization keeps running for the other callers.
func (s *Serialized) Materialize(ctx context.Context, d Descriptor) (*FileSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := pathKey(d.Path)
	lock := s.lockFor(key)

	results := s.group.DoChan(key, func() (any, error) {
		syncCtx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			syncCtx, cancel = context.WithTimeout(syncCtx, s.timeout)
			defer cancel()
		}

		lock.Lock()
		defer lock.Unlock()

		files, err := s.next.Materialize(syncCtx, d)
		if err != nil {
			return nil, err
		}
		files.Close()
		return files.Root(), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		root, ok := res.Val.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected sync result %T", ErrSourceCorrupt, res.Val)
		}
		lock.RLock()
		return newFileSet(root, lock.RUnlock), nil
	}
}

func (s *Serialized) lockFor(key string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[key] = lock
	}
	return lock
}

func pathKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
