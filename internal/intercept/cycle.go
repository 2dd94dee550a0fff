package intercept

import (
	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/lifecycle"
	"github.com/microfront/hoist/internal/style"
)

// Cycle drives the parts of an app's mount lifecycle that sit outside
// the patched regions: phase reference counting and carrying injected
// stylesheet rules across unmount. The host calls Suspend right before
// detaching an app's container and Resume right after reattaching it;
// phase transitions bracket the host's bootstrap and mount calls.
type Cycle struct {
	registry  *lifecycle.Registry
	preserver *style.Preserver
}

// NewCycle builds a cycle around the given registry. A nil registry gets
// a fresh one.
func NewCycle(registry *lifecycle.Registry) *Cycle {
	if registry == nil {
		registry = lifecycle.NewRegistry()
	}
	return &Cycle{
		registry:  registry,
		preserver: style.NewPreserver(),
	}
}

// Registry exposes the underlying phase registry.
func (c *Cycle) Registry() *lifecycle.Registry {
	return c.registry
}

// Preserver exposes the rule preserver, primarily so classifiers can
// probe it for previously captured nodes.
func (c *Cycle) Preserver() *style.Preserver {
	return c.preserver
}

// PhaseStarted records entry into a bootstrap or mount phase.
func (c *Cycle) PhaseStarted(appID string, phase lifecycle.Phase) {
	c.registry.Adjust(appID, phase, lifecycle.Increase)
}

// PhaseFinished records completion of a bootstrap or mount phase. Safe
// to call more than once per start; the counter floors at zero.
func (c *Cycle) PhaseFinished(appID string, phase lifecycle.Phase) {
	c.registry.Adjust(appID, phase, lifecycle.Decrease)
}

// Idle reports whether no app is mid-phase, the precondition for fully
// unpatching the document.
func (c *Cycle) Idle() bool {
	return c.registry.AllIdle()
}

// Suspend snapshots the rules of the app's dynamically inserted style
// nodes. Call before the container is detached; detaching discards each
// node's live rule list.
func (c *Cycle) Suspend(cfg *SandboxConfig) {
	if cfg == nil {
		return
	}
	c.preserver.CaptureRules(cfg.DynamicStyleSheetElements)
}

// Resume replays captured rules into the app's style nodes. Call after
// the container is back in the document; replay is idempotent and skips
// nodes that were never captured.
func (c *Cycle) Resume(cfg *SandboxConfig) {
	if cfg == nil {
		return
	}
	for _, node := range cfg.DynamicStyleSheetElements {
		c.preserver.ReplayRules(node)
	}
}

// Preserved reports whether a snapshot exists for the node.
func (c *Cycle) Preserved(node *dom.Element) bool {
	return c.preserver.Has(node)
}

// Uninstall drops all captured rule snapshots. Call when the layer is
// torn down for good, after Unpatch.
func (c *Cycle) Uninstall() {
	c.preserver.Clear()
}
