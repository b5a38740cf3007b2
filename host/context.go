// Package host defines the surface a host audio engine offers to the loader
// and provides Context, an offline reference engine used by the CLI and
// tests.
//
// A real host owns the render thread, the graph and the clock. This package
// only models what the registration protocol depends on: installing glue by
// kind name, creating nodes against installed glue, and tearing everything
// down when the engine closes.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/glue"
)

// Engine is a host engine instance as seen by the loader.
type Engine interface {
	// ID identifies this engine instance for registration bookkeeping.
	ID() string
	SampleRate() float32
	// Install makes glue available under its kind name. Installing the same
	// name twice is an error.
	Install(ctx context.Context, g *glue.Glue) error
	// CreateNode binds core to the glue installed under name.
	CreateNode(ctx context.Context, name string, core bridge.Core) (*Node, error)
	// OnClose registers fn to run when the engine closes.
	OnClose(fn func())
}

// Config configures a Context.
type Config struct {
	Logger     *zap.Logger
	SampleRate float32
	BlockSize  int
}

// DefaultSampleRate is used when Config.SampleRate is unset.
const DefaultSampleRate = 44100

// Context is an offline host engine. It is safe for concurrent use.
type Context struct {
	log      *zap.Logger
	glue     map[string]*glue.Glue
	installs map[string]int
	nodes    map[uuid.UUID]*Node
	id       string
	onClose  []func()
	cfg      Config
	mu       sync.Mutex
	closed   bool
}

var _ Engine = (*Context)(nil)

// NewContext creates a host engine with cfg. Zero values take defaults.
func NewContext(cfg Config) *Context {
	if !(cfg.SampleRate > 0) {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = pureaudio.DefaultBlockSize
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New().String()
	return &Context{
		log:      log.With(zap.String("engine", id)),
		glue:     make(map[string]*glue.Glue),
		installs: make(map[string]int),
		nodes:    make(map[uuid.UUID]*Node),
		id:       id,
		cfg:      cfg,
	}
}

func (c *Context) ID() string { return c.id }

func (c *Context) SampleRate() float32 { return c.cfg.SampleRate }

// BlockSize returns the render quantum the engine drives nodes with.
func (c *Context) BlockSize() int { return c.cfg.BlockSize }

// Install adds g under its kind name.
func (c *Context) Install(_ context.Context, g *glue.Glue) error {
	if g == nil {
		return errors.InvalidInput(errors.PhaseRegister, "nil glue")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.Unavailable(errors.PhaseRegister, "host engine is closed")
	}
	name := g.Name()
	if _, ok := c.glue[name]; ok {
		return errors.Registration(name, fmt.Errorf("glue %q already installed", name))
	}
	if bs := g.Descriptor().Shape.BlockSize; bs != c.cfg.BlockSize {
		return errors.Registration(name, fmt.Errorf("block size %d does not match engine render quantum %d", bs, c.cfg.BlockSize))
	}
	c.glue[name] = g
	c.installs[name]++
	c.log.Debug("glue installed", zap.String("kind", name))
	return nil
}

// Installed reports whether glue for name is installed.
func (c *Context) Installed(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.glue[name]
	return ok
}

// Installs returns how many times glue for name was installed.
func (c *Context) Installs(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installs[name]
}

// CreateNode binds core to the glue installed under name. On failure the
// core is left to the caller.
func (c *Context) CreateNode(_ context.Context, name string, core bridge.Core) (*Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.Unavailable(errors.PhaseCreate, "host engine is closed")
	}
	g, ok := c.glue[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseCreate, "installed glue", name)
	}
	proc, err := g.Bind(core)
	if err != nil {
		return nil, err
	}
	n := &Node{
		id:   uuid.New(),
		kind: name,
		proc: proc,
		host: c,
	}
	c.nodes[n.id] = n
	c.log.Debug("node created", zap.String("kind", name), zap.Stringer("node", n.id))
	return n, nil
}

// Node returns the live node with id.
func (c *Context) Node(id uuid.UUID) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	return n, ok
}

// Len returns the number of live nodes.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// OnClose registers fn to run on Close. On a closed engine fn runs at once.
func (c *Context) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

func (c *Context) remove(id uuid.UUID) {
	c.mu.Lock()
	delete(c.nodes, id)
	c.mu.Unlock()
}

// Close destroys every node, runs close hooks in reverse registration order
// and rejects further work. Closing twice is a no-op.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	nodes := make([]*Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n)
	}
	c.nodes = make(map[uuid.UUID]*Node)
	hooks := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	var first error
	for _, n := range nodes {
		if err := n.release(ctx); err != nil && first == nil {
			first = err
		}
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	c.log.Debug("host engine closed", zap.Int("nodes", len(nodes)))
	return first
}
