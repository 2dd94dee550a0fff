package intercept

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/microfront/hoist/internal/classify"
	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/logging"
	"github.com/microfront/hoist/internal/monitoring"
	"github.com/microfront/hoist/internal/script"
)

// Interceptor reroutes dynamic resource insertion on a document's shared
// regions into the owning micro-app's container. It is a constructed
// service with an explicit Patched/Unpatched state per region; installing
// while already patched is a no-op and Unpatch restores the entry points
// captured at patch time.
type Interceptor struct {
	doc      *dom.Document
	oracle   Oracle
	pipeline *script.Pipeline
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	opts     Options

	mu      sync.Mutex
	regions map[*dom.Region]*regionState

	// non-owning side tables, cleared on Unpatch
	artifacts map[*dom.Element]*dom.Element // original node -> attached artifact
	tasks     map[*dom.Element]*script.Task // script node -> pending transform
}

type regionState struct {
	patched    bool
	origInsert dom.InsertFunc
	origRemove dom.RemoveFunc
}

// New creates an interceptor for the document. logger and metrics may be
// nil.
func New(doc *dom.Document, oracle Oracle, pipeline *script.Pipeline, logger *logging.Logger, metrics *monitoring.Metrics, opts Options) *Interceptor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Interceptor{
		doc:      doc,
		oracle:   oracle,
		pipeline: pipeline,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
		regions: map[*dom.Region]*regionState{
			doc.Head: {},
			doc.Body: {},
		},
		artifacts: make(map[*dom.Element]*dom.Element),
		tasks:     make(map[*dom.Element]*script.Task),
	}
}

// Patch installs the interception wrappers on head and body. Idempotent:
// a second call while patched changes nothing, so multiple independent
// orchestrator instances may attempt installation.
//
// Hook swaps run inside Document.Sync so they take the document lock
// before the interceptor's own. The installed hooks run under the
// document lock and take the interceptor lock for the side tables; a
// Patch that acquired the locks in the opposite order could deadlock
// against an in-flight insertion.
func (i *Interceptor) Patch() {
	i.doc.Sync(func() {
		i.mu.Lock()
		defer i.mu.Unlock()

		for region, state := range i.regions {
			if state.patched {
				continue
			}
			state.origInsert, state.origRemove = region.SetHooks(
				i.makeInsert(region),
				i.makeRemove(region),
			)
			state.patched = true
		}
	})
}

// Patched reports whether the interception is currently installed.
func (i *Interceptor) Patched() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, state := range i.regions {
		if state.patched {
			return true
		}
	}
	return false
}

// Unpatch restores the original entry points captured at patch time and
// clears the side tables. Callers invoke this only once all micro-apps
// relying on patched behavior are gone.
func (i *Interceptor) Unpatch() {
	i.doc.Sync(func() {
		i.mu.Lock()
		defer i.mu.Unlock()

		for region, state := range i.regions {
			if !state.patched {
				continue
			}
			region.SetHooks(state.origInsert, state.origRemove)
			state.patched = false
			state.origInsert, state.origRemove = nil, nil
		}

		i.artifacts = make(map[*dom.Element]*dom.Element)
		i.tasks = make(map[*dom.Element]*script.Task)
	})
}

// TaskFor returns the pending transform task for a script node, if any.
// The task is ignorable; it exists so callers can observe the
// discard-if-stale policy.
func (i *Interceptor) TaskFor(node *dom.Element) *script.Task {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tasks[node]
}

func (i *Interceptor) makeInsert(region *dom.Region) dom.InsertFunc {
	return func(node, ref *dom.Element) (*dom.Element, error) {
		i.mu.Lock()
		orig := i.regions[region].origInsert
		i.mu.Unlock()

		if !classify.IsHijackable(node) || !i.oracle.OwnedByMicroApp(node) {
			i.countPassThrough("insert")
			return orig(node, ref)
		}

		cfg := i.oracle.SandboxConfig(node)
		if cfg == nil {
			i.countPassThrough("insert")
			return orig(node, ref)
		}

		switch node.TagName {
		case "style", "link":
			return i.insertStyleNode(region, orig, cfg, node, ref)
		case "script":
			return i.insertScriptNode(region, orig, cfg, node, ref)
		}
		return orig(node, ref)
	}
}

// insertStyleNode reroutes a dynamic style or link node into the app
// container and registers it for remount replay.
func (i *Interceptor) insertStyleNode(region *dom.Region, orig dom.InsertFunc, cfg *SandboxConfig, node, ref *dom.Element) (*dom.Element, error) {
	container := cfg.GetContainer()
	if container == nil {
		i.logger.Warn("app container unavailable, delegating insert",
			zap.String("app", cfg.AppID),
			zap.String("tag", node.TagName),
		)
		return orig(node, ref)
	}

	node.SetAttribute(TargetAttr, region.Name())

	artifact := node
	if node.TagName == "link" && i.opts.ConvertLinkToStyle && i.opts.Fetch != nil {
		artifact = i.convertLinkToStyle(node)
	}

	cfg.appendStyleElement(artifact)
	insertIntoContainer(container, artifact, ref)

	i.countIntercepted(region.Name(), node.TagName)
	return node, nil
}

// insertScriptNode runs the transform pipeline against the node, then
// places it in the app container. The node occupies its position
// immediately; for external scripts only the executable content is
// pending until the fetch resolves.
func (i *Interceptor) insertScriptNode(region *dom.Region, orig dom.InsertFunc, cfg *SandboxConfig, node, ref *dom.Element) (*dom.Element, error) {
	container := cfg.GetContainer()
	if container == nil {
		i.logger.Warn("app container unavailable, delegating insert",
			zap.String("app", cfg.AppID),
			zap.String("tag", node.TagName),
		)
		return orig(node, ref)
	}

	task := i.pipeline.Transform(context.Background(), i.doc, node, i.doc.BaseURI, cfg.Sandbox)

	i.mu.Lock()
	i.tasks[node] = task
	i.mu.Unlock()

	insertIntoContainer(container, node, ref)

	i.countIntercepted(region.Name(), node.TagName)
	return node, nil
}

// convertLinkToStyle materializes a stylesheet link as an inline style
// node: the style is inserted empty and receives the fetched CSS text
// once it resolves, unless the style left the document by then. The
// link is associated with the style so removal of the link finds it.
func (i *Interceptor) convertLinkToStyle(link *dom.Element) *dom.Element {
	href := script.AbsoluteURL(i.doc.BaseURI, link.GetAttribute("href"))

	styleNode := dom.NewElement("style")
	styleNode.SetAttribute("type", "text/css")
	styleNode.SetAttribute(script.SrcAttr, href)
	styleNode.SetAttribute(TargetAttr, link.GetAttribute(TargetAttr))

	i.mu.Lock()
	i.artifacts[link] = styleNode
	i.mu.Unlock()

	go func() {
		css, err := i.opts.Fetch(context.Background(), href)
		if err != nil {
			i.logger.Warn("stylesheet fetch failed",
				zap.String("url", href),
				zap.Error(err),
			)
			return
		}
		i.doc.Sync(func() {
			if styleNode.OwnerDocument() != i.doc {
				return
			}
			styleNode.SetTextContent(css)
		})
	}()

	return styleNode
}

func (i *Interceptor) makeRemove(region *dom.Region) dom.RemoveFunc {
	return func(node *dom.Element) (*dom.Element, error) {
		i.mu.Lock()
		orig := i.regions[region].origRemove
		i.mu.Unlock()

		if !classify.IsHijackable(node) || !i.oracle.OwnedByMicroApp(node) {
			i.countPassThrough("remove")
			return orig(node)
		}

		removed, handled := i.removeHijacked(region, node)
		if handled {
			return removed, nil
		}

		// fall back to the original target; the hijacked remove path
		// never propagates an error to the caller
		if removed, err := orig(node); err == nil {
			return removed, nil
		}
		return node, nil
	}
}

// removeHijacked resolves the node's attached artifact and removes it
// from its actual parent, which may differ from the shared region the
// caller addressed. Reports handled=false when the artifact is no longer
// inside the app container or anything on this path fails.
func (i *Interceptor) removeHijacked(region *dom.Region, node *dom.Element) (removed *dom.Element, handled bool) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("remove path failed",
				zap.String("region", region.Name()),
				zap.Any("panic", r),
			)
			if i.metrics != nil {
				i.metrics.RemoveErrors.Inc()
			}
			removed, handled = nil, false
		}
	}()

	cfg := i.oracle.SandboxConfig(node)
	if cfg == nil {
		return nil, false
	}

	i.mu.Lock()
	artifact, ok := i.artifacts[node]
	if !ok {
		artifact = node
	}
	delete(i.artifacts, node)
	delete(i.tasks, node)
	i.mu.Unlock()

	cfg.removeStyleElement(artifact)
	cfg.removeStyleElement(node)

	// free the in-memory resource behind an installed wrapped script
	if src := artifact.GetAttribute("src"); script.IsBlobURL(src) {
		i.pipeline.Blobs().Revoke(src)
	}

	container := cfg.GetContainer()
	if container == nil || !container.Contains(artifact) || artifact.Parent == nil {
		return nil, false
	}

	if _, err := artifact.Parent.RemoveChild(artifact); err != nil {
		i.logger.Error("remove path failed",
			zap.String("region", region.Name()),
			zap.String("app", cfg.AppID),
			zap.Error(err),
		)
		if i.metrics != nil {
			i.metrics.RemoveErrors.Inc()
		}
		return nil, false
	}

	i.countRemoved(region.Name(), node.TagName)
	return node, true
}

// insertIntoContainer inserts honoring the caller's reference node only
// when that reference actually lives inside the container.
func insertIntoContainer(container, node, ref *dom.Element) {
	if ref != nil && container.Contains(ref) {
		container.InsertBefore(node, ref)
		return
	}
	container.AppendChild(node)
}

func (i *Interceptor) countIntercepted(region, tag string) {
	if i.metrics != nil {
		i.metrics.Intercepted.WithLabelValues(region, tag).Inc()
	}
}

func (i *Interceptor) countRemoved(region, tag string) {
	if i.metrics != nil {
		i.metrics.Removed.WithLabelValues(region, tag).Inc()
	}
}

func (i *Interceptor) countPassThrough(op string) {
	if i.metrics != nil {
		i.metrics.PassThrough.WithLabelValues(op).Inc()
	}
}
