package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ErrPartitionBusy is returned when another run holds the entity's partition.
var ErrPartitionBusy = errors.New("store: partition busy")

// DefaultStaleLock is the age after which a leftover lock file is taken over.
const DefaultStaleLock = 12 * time.Hour

// PartitionLock serializes runs per entity: an in-process set guards
// goroutines of one process, an exclusive lock file guards other processes.
type PartitionLock struct {
	dir        string
	staleAfter time.Duration

	mu   sync.Mutex
	held map[string]struct{}
}

// NewPartitionLock keeps lock files under dir.
func NewPartitionLock(dir string, staleAfter time.Duration) *PartitionLock {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleLock
	}
	return &PartitionLock{dir: dir, staleAfter: staleAfter, held: map[string]struct{}{}}
}

func (l *PartitionLock) path(eid string) string {
	return filepath.Join(l.dir, eid+".lock")
}

// Acquire takes eid's lock. The returned func releases it.
func (l *PartitionLock) Acquire(eid string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[eid]; ok {
		return nil, fmt.Errorf("eid %s: %w", eid, ErrPartitionBusy)
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	if err := l.create(eid); err != nil {
		return nil, err
	}
	l.held[eid] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, eid)
			_ = os.Remove(l.path(eid))
		})
	}, nil
}

func (l *PartitionLock) create(eid string) error {
	p := l.path(eid)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			return f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock %s: %w", p, err)
		}
		info, statErr := os.Stat(p)
		if statErr != nil || time.Since(info.ModTime()) < l.staleAfter {
			break
		}
		_ = os.Remove(p)
	}
	return fmt.Errorf("eid %s: %w", eid, ErrPartitionBusy)
}
