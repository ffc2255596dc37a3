// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about engine operations, store operations, and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so the engine and the
// stores stay free of any metrics backend. The prom subpackage provides a
// Prometheus implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetEngineHooks(m)
//	    observability.SetStoreHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	report, err := e.LoadDocument(ctx, doc, opts)
//	observability.Engine().OnLoad(ctx, len(report.Created), len(report.Warnings), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the capture/reconstruction engine.
type EngineHooks interface {
	// OnExport records an export of nodes records.
	OnExport(ctx context.Context, nodes int, duration time.Duration, err error)

	// OnLoad records a load. created counts the nodes created and warnings
	// the failures recovered along the way.
	OnLoad(ctx context.Context, created, warnings int, duration time.Duration, err error)

	// OnMerge records a merge onto node.
	OnMerge(ctx context.Context, node string, written, skipped int, duration time.Duration, err error)

	// OnDecompose records a pose-space delta decomposition.
	OnDecompose(ctx context.Context, vertices int, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from record stores.
type StoreHooks interface {
	// OnGet records a read. hit is false when the document did not exist.
	OnGet(ctx context.Context, backend string, hit bool)

	// OnPut records a write of size bytes.
	OnPut(ctx context.Context, backend string, size int)

	// OnDelete records a deletion.
	OnDelete(ctx context.Context, backend string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a response.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnExport(context.Context, int, time.Duration, error)             {}
func (NoopEngineHooks) OnLoad(context.Context, int, int, time.Duration, error)          {}
func (NoopEngineHooks) OnMerge(context.Context, string, int, int, time.Duration, error) {}
func (NoopEngineHooks) OnDecompose(context.Context, int, time.Duration, error)          {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnGet(context.Context, string, bool) {}
func (NoopStoreHooks) OnPut(context.Context, string, int)  {}
func (NoopStoreHooks) OnDelete(context.Context, string)    {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup before any engine operations.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}
