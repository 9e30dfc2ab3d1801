package detection

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Registered detector names.
const (
	// PlateModel detects plates and vehicles.
	PlateModel = "plate"
	// DamageModel detects vehicle damage.
	DamageModel = "damage"
)

var (
	// ErrUnknownDetector is returned for names that were never registered.
	ErrUnknownDetector = errors.New("unknown detector")
	// ErrNotInitialized is returned before Init or after Shutdown.
	ErrNotInitialized = errors.New("detector registry not initialized")
)

// Factory builds a detector. It runs once, during Registry.Init.
type Factory func(ctx context.Context) (Detector, error)

// Registry owns the process's detectors. Build one at startup, Init it, pass
// it to whatever needs detection, and Shutdown it on exit.
type Registry struct {
	mu        sync.RWMutex
	logger    zerolog.Logger
	factories map[string]Factory
	detectors map[string]Detector
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:    logger.With().Str("component", "registry").Logger(),
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name, replacing any previous one. Factories
// registered after Init take effect on the next Init.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Init builds every registered detector. If one fails, the detectors already
// built are closed and the error is returned. Calling Init on an initialized
// registry is a no-op.
//
// Arguments:
//   - ctx: Cancels initialization between factories.
//
// Returns:
//   - error: The first factory error.
func (r *Registry) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detectors != nil {
		return nil
	}

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	built := make(map[string]Detector, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			closeAll(built, r.logger)
			return err
		}

		start := time.Now()
		d, err := r.factories[name](ctx)
		if err != nil {
			closeAll(built, r.logger)
			return errors.Wrapf(err, "init detector %q", name)
		}
		built[name] = d
		r.logger.Info().Str("detector", name).Int("classes", d.Names().Len()).
			Dur("elapsed", time.Since(start)).Msg("detector loaded")
	}

	r.detectors = built
	return nil
}

// Get returns the detector registered under name.
func (r *Registry) Get(name string) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.detectors == nil {
		return nil, ErrNotInitialized
	}
	d, ok := r.detectors[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDetector, "%q", name)
	}
	return d, nil
}

// Shutdown closes every detector that implements io.Closer. The registry can
// be initialized again afterwards.
//
// Returns:
//   - error: The first close error, after attempting all of them.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := closeAll(r.detectors, r.logger)
	r.detectors = nil
	return err
}

func closeAll(detectors map[string]Detector, logger zerolog.Logger) error {
	var first error
	for name, d := range detectors {
		closer, ok := d.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Str("detector", name).Msg("detector close failed")
			if first == nil {
				first = errors.Wrapf(err, "close detector %q", name)
			}
		}
	}
	return first
}
