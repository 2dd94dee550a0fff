package intercept

import (
	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/script"
)

// TargetAttr records which shared region a rerouted style or link node
// originally targeted, for bookkeeping across remounts.
const TargetAttr = "data-hoist-target"

// SandboxConfig is the per-app configuration the orchestrator owns and
// the interceptor reads. GetContainer must be callable repeatedly and may
// return a node that has since been detached; the interceptor re-checks
// containment before acting on it.
type SandboxConfig struct {
	AppID string

	// GetContainer returns the app's private subtree, the true
	// destination for rerouted resource nodes.
	GetContainer func() *dom.Element

	// DynamicStyleSheetElements is the ordered registry of dynamically
	// inserted style and link nodes, appended on insert and removed by
	// identity on removal. The orchestrator replays it on remount.
	DynamicStyleSheetElements []*dom.Element

	// Sandbox wraps captured script code; nil disables script rewriting.
	Sandbox script.Sandbox
}

// appendStyleElement appends the node to the dynamic stylesheet registry
// exactly once by identity.
func (c *SandboxConfig) appendStyleElement(node *dom.Element) {
	for _, existing := range c.DynamicStyleSheetElements {
		if existing == node {
			return
		}
	}
	c.DynamicStyleSheetElements = append(c.DynamicStyleSheetElements, node)
}

// removeStyleElement removes the node from the registry by identity.
func (c *SandboxConfig) removeStyleElement(node *dom.Element) {
	for i, existing := range c.DynamicStyleSheetElements {
		if existing == node {
			c.DynamicStyleSheetElements = append(
				c.DynamicStyleSheetElements[:i],
				c.DynamicStyleSheetElements[i+1:]...,
			)
			return
		}
	}
}

// Oracle attributes a node about to be inserted or removed to the
// micro-app that owns it. Supplied by the orchestrator at patch time.
type Oracle interface {
	// OwnedByMicroApp reports whether the mutation was invoked by a
	// micro-app rather than the host page.
	OwnedByMicroApp(node *dom.Element) bool

	// SandboxConfig returns the owning app's configuration.
	SandboxConfig(node *dom.Element) *SandboxConfig
}

// Options tunes optional interceptor behavior.
type Options struct {
	// ConvertLinkToStyle materializes dynamic stylesheet links as inline
	// style nodes holding the fetched CSS. Off by default; the link node
	// is then associated with the style node it became, so a later
	// removal of the link finds the style.
	ConvertLinkToStyle bool

	// Fetch retrieves link CSS when ConvertLinkToStyle is enabled.
	Fetch script.FetchFunc
}
