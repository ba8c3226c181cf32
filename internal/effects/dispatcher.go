package effects

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/effect-engine/internal/errors"
)

// Dispatcher turns fired expiration triggers back into engine work
type Dispatcher struct {
	engine *Engine
}

// NewDispatcher creates a dispatcher for engine
func NewDispatcher(engine *Engine) (*Dispatcher, error) {
	if engine == nil {
		return nil, errors.MissingParam("engine")
	}
	return &Dispatcher{engine: engine}, nil
}

// OnTimerFired decodes key and expires the effect it names. Keys without the
// expire prefix or naming an unregistered effect are ignored.
func (d *Dispatcher) OnTimerFired(ctx context.Context, target, key string) error {
	expKey, ok := ParseExpirationKey(key)
	if !ok {
		slog.Debug("ignoring foreign trigger",
			"component", "effects_dispatcher",
			"target", target,
			"key", key)
		return nil
	}

	kind, err := d.engine.registry.Lookup(expKey.Effect)
	if err != nil {
		slog.Debug("ignoring trigger for unknown effect",
			"component", "effects_dispatcher",
			"target", target,
			"effect", expKey.Effect)
		return nil
	}

	slog.Debug("effect expired",
		"component", "effects_dispatcher",
		"target", target,
		"effect", expKey.Effect,
		"sub_id", expKey.SubID,
		"owner", expKey.Owner.String())

	return d.engine.expire(ctx, target, kind, expKey)
}

// Handler returns OnTimerFired as a FiredHandler
func (d *Dispatcher) Handler() FiredHandler {
	return d.OnTimerFired
}
