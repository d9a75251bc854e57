// Package server implements the HTTP surface: one handler per reduction
// operation, the schema/metrics/health endpoints, and graceful startup and
// shutdown. Grounded on ais/target.go's handler-table/writeErr idiom and
// original_source/src/server.rs + app_state.rs for the shared-state and
// shutdown shape.
package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stackhpc/reductionist-go/internal/config"
	"github.com/stackhpc/reductionist-go/internal/resource"
	"github.com/stackhpc/reductionist-go/internal/stats"
	"github.com/stackhpc/reductionist-go/internal/store"
)

// AppState is the shared, read-only-after-construction state every handler
// closes over, the Go analogue of the reference's Arc<AppState>: a plain
// struct passed by pointer, safe for concurrent use because nothing in it
// is mutated after New returns.
type AppState struct {
	Config    *config.Config
	Resources *resource.Manager
	Store     *store.Store
	Stats     *stats.Stats
	Registry  *prometheus.Registry
}

func New(cfg *config.Config, resources *resource.Manager, st *store.Store, metrics *stats.Stats, reg *prometheus.Registry) *AppState {
	return &AppState{Config: cfg, Resources: resources, Store: st, Stats: metrics, Registry: reg}
}
