// Package loader implements registration and node creation.
//
// The first time a kind is used against a host engine its glue is generated
// and installed; every use creates a fresh compute core and a node bound to
// that glue. Registrations are tracked per engine instance in a table that
// is created on first registration and dropped when the engine closes.
package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/glue"
	"github.com/TheCrustyCrab/pure-audio/host"
)

// table records the kinds installed against one engine instance.
type table struct {
	kinds map[string]*glue.Glue
	mu    sync.Mutex
}

var (
	tables   = make(map[string]*table)
	tablesMu sync.Mutex
)

func tableFor(eng host.Engine) *table {
	id := eng.ID()

	tablesMu.Lock()
	t, ok := tables[id]
	if !ok {
		t = &table{kinds: make(map[string]*glue.Glue)}
		tables[id] = t
	}
	tablesMu.Unlock()

	if !ok {
		eng.OnClose(func() { drop(id, t) })
	}
	return t
}

func lookup(eng host.Engine) (*table, bool) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	t, ok := tables[eng.ID()]
	return t, ok
}

func drop(id string, t *table) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if tables[id] == t {
		delete(tables, id)
		Logger().Debug("registration table dropped", zap.String("engine", id))
	}
}

// Register installs glue for src against eng unless it is already
// installed. A second registration under the same name must describe the
// same kind.
func Register(ctx context.Context, eng host.Engine, src bridge.Source) (*glue.Glue, error) {
	if eng == nil {
		return nil, errors.Unavailable(errors.PhaseRegister, "no host engine")
	}
	desc := glue.Describe(src)

	t := tableFor(eng)
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.kinds[desc.Name]; ok {
		if !sameKind(g.Descriptor(), desc) {
			return nil, errors.Registration(desc.Name,
				fmt.Errorf("kind %q already registered with a different shape or schema", desc.Name))
		}
		return g, nil
	}

	g, err := glue.Generate(desc)
	if err != nil {
		return nil, err
	}
	if err := eng.Install(ctx, g); err != nil {
		var pe *errors.Error
		if !stderrors.As(err, &pe) {
			err = errors.Registration(desc.Name, err)
		}
		return nil, err
	}
	t.kinds[desc.Name] = g
	Logger().Info("processor kind registered",
		zap.String("kind", desc.Name),
		zap.Stringer("capability", desc.Capability),
		zap.String("engine", eng.ID()))
	return g, nil
}

// Registered reports whether name has been registered against eng.
func Registered(eng host.Engine, name string) bool {
	t, ok := lookup(eng)
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok = t.kinds[name]
	return ok
}

// CreateNode instantiates a fresh core for src at the engine's sample rate
// and binds it to the registered glue. src must have been registered.
func CreateNode(ctx context.Context, eng host.Engine, src bridge.Source) (*host.Node, error) {
	if eng == nil {
		return nil, errors.Unavailable(errors.PhaseCreate, "no host engine")
	}
	name := src.Name()
	if !Registered(eng, name) {
		return nil, errors.NotFound(errors.PhaseCreate, "registered kind", name)
	}

	core, err := src.NewCore(ctx, eng.SampleRate())
	if err != nil {
		var pe *errors.Error
		if !stderrors.As(err, &pe) {
			err = errors.Instantiation(name, err)
		}
		return nil, err
	}
	node, err := eng.CreateNode(ctx, name, core)
	if err != nil {
		_ = core.Close(ctx)
		return nil, err
	}
	Logger().Debug("node created",
		zap.String("kind", name),
		zap.Stringer("node", node.ID()))
	return node, nil
}

// RegisterAndCreateNode registers src if needed and creates a node.
func RegisterAndCreateNode(ctx context.Context, eng host.Engine, src bridge.Source) (*host.Node, error) {
	if _, err := Register(ctx, eng, src); err != nil {
		return nil, err
	}
	return CreateNode(ctx, eng, src)
}

func sameKind(a, b glue.Descriptor) bool {
	return a.Name == b.Name &&
		a.Capability == b.Capability &&
		a.Shape == b.Shape &&
		slices.Equal(a.Schema, b.Schema)
}
