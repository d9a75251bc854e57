// Package resource implements the admission gates that bound in-flight HTTP
// and S3 connections, resident memory, and concurrent reduction tasks. Each
// gate is independently optional; a nil gate is unbounded. This mirrors the
// aistore target's capacity-check idiom (fs.Cap()/errCap checks ahead of
// admitting work in ais/target.go) translated to four explicit semaphores,
// grounded directly on original_source/src/resource_manager.rs.
package resource

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// Permit represents ownership of a resource quantum. It must be released
// exactly once; Release is idempotent-safe to call via defer even when the
// permit is the zero value (unbounded gate, or a not-yet-acquired slot).
type Permit struct {
	sem    *semaphore.Weighted
	weight int64
}

// Release returns the permit's quantum to its gate. Safe to call on a
// zero-value Permit (acquired from an unbounded/nil gate).
func (p *Permit) Release() {
	if p == nil || p.sem == nil {
		return
	}
	p.sem.Release(p.weight)
	p.sem = nil
}

// Manager bounds four independent resources. Any field left nil is
// unbounded for that gate, matching the reference's Option<Semaphore>
// per-gate design.
type Manager struct {
	connectionsHTTP *semaphore.Weighted
	connectionsS3   *semaphore.Weighted
	memory          *semaphore.Weighted
	totalMemory     int64
	tasks           *semaphore.Weighted
}

// Limits configures the four gates; a zero value for any field means
// "unbounded" for that gate.
type Limits struct {
	ConnectionsHTTP int64
	ConnectionsS3   int64
	MemoryBytes     int64
	Tasks           int64
}

// New constructs a Manager. A zero limit disables that gate (unbounded).
func New(limits Limits) *Manager {
	m := &Manager{totalMemory: limits.MemoryBytes}
	if limits.ConnectionsHTTP > 0 {
		m.connectionsHTTP = semaphore.NewWeighted(limits.ConnectionsHTTP)
	}
	if limits.ConnectionsS3 > 0 {
		m.connectionsS3 = semaphore.NewWeighted(limits.ConnectionsS3)
	}
	if limits.MemoryBytes > 0 {
		m.memory = semaphore.NewWeighted(limits.MemoryBytes)
	}
	if limits.Tasks > 0 {
		m.tasks = semaphore.NewWeighted(limits.Tasks)
	}
	return m
}

func acquire(ctx context.Context, sem *semaphore.Weighted, n int64) (*Permit, error) {
	if sem == nil {
		return &Permit{}, nil
	}
	if err := sem.Acquire(ctx, n); err != nil {
		return nil, fmt.Errorf("resource: acquire: %w", err)
	}
	return &Permit{sem: sem, weight: n}, nil
}

func (m *Manager) AcquireHTTPConn(ctx context.Context) (*Permit, error) {
	return acquire(ctx, m.connectionsHTTP, 1)
}

func (m *Manager) AcquireS3Conn(ctx context.Context) (*Permit, error) {
	return acquire(ctx, m.connectionsS3, 1)
}

// AcquireTask acquires a single concurrent-reduction task slot.
func (m *Manager) AcquireTask(ctx context.Context) (*Permit, error) {
	return acquire(ctx, m.tasks, 1)
}

// AcquireMemory acquires bytes of memory budget. It fails immediately,
// without blocking, if bytes exceeds the configured total — this is the
// fast-fail InsufficientMemory path: a request for more memory than the
// server will ever have can never succeed, so it must not queue behind
// requests that will complete and free their share.
func (m *Manager) AcquireMemory(ctx context.Context, bytes int64) (*Permit, error) {
	if m.memory == nil {
		return &Permit{}, nil
	}
	if bytes > m.totalMemory {
		return nil, cmn.NewError(cmn.KindInsufficientMemory, "insufficient memory: requested %d bytes exceeds total memory budget %d", bytes, m.totalMemory)
	}
	return acquire(ctx, m.memory, bytes)
}

// ReacquireMemory releases an existing (possibly zero-weight) permit and
// acquires a fresh one for exactly bytes, implementing the zero-byte
// pre-admission re-acquisition once true content length is known (§4.3).
func (m *Manager) ReacquireMemory(ctx context.Context, old *Permit, bytes int64) (*Permit, error) {
	old.Release()
	return m.AcquireMemory(ctx, bytes)
}
