package script

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/microfront/hoist/internal/classify"
	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/logging"
)

// SrcAttr records the resolved absolute URL of an external script whose
// src attribute was stripped for sandboxed loading.
const SrcAttr = "data-hoist-src"

// Sandbox wraps fetched code so its free variables bind against a private
// global object instead of the shared window.
type Sandbox interface {
	MakeEvaluateFactory(code, url string) string
}

// FetchFunc retrieves the text of an external resource.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Pipeline turns captured script nodes into nodes whose executed code
// runs inside a sandbox-provided global scope. External resources are
// fetched asynchronously; everything else happens inline.
type Pipeline struct {
	fetch       FetchFunc
	blobs       *BlobStore
	logger      *logging.Logger
	onStale     func()
	onTransform func()
}

// NewPipeline creates a pipeline backed by the given fetcher and blob
// store. A nil logger falls back to a no-op logger.
func NewPipeline(fetch FetchFunc, blobs *BlobStore, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{fetch: fetch, blobs: blobs, logger: logger}
}

// WithStaleObserver registers a callback invoked whenever a fetched
// result is discarded because its node left the document.
func (p *Pipeline) WithStaleObserver(fn func()) *Pipeline {
	p.onStale = fn
	return p
}

// WithTransformObserver registers a callback invoked whenever a script is
// actually rewritten for sandboxed execution: once per inline wrap and
// once per external script handed to the fetch path. Pass-throughs and
// non-executable scripts do not count.
func (p *Pipeline) WithTransformObserver(fn func()) *Pipeline {
	p.onTransform = fn
	return p
}

func (p *Pipeline) notifyTransform() {
	if p.onTransform != nil {
		p.onTransform()
	}
}

// Blobs returns the store wrapped code is installed into.
func (p *Pipeline) Blobs() *BlobStore {
	return p.blobs
}

// Transform rewrites a script node according to the sandbox contract.
//
// Without a sandbox it only normalizes a relative src to an absolute one.
// With a sandbox, an external script has its src stripped immediately (so
// nothing loads the raw code), the resolved URL recorded on the node, and
// the fetched text wrapped and installed as a blob URL once the fetch
// resolves. If the node has left the document by then, the result is
// silently discarded instead. Inline executable scripts are wrapped
// synchronously. Non-executable script types are never touched.
//
// The returned task is already complete for every path except the
// external fetch.
func (p *Pipeline) Transform(ctx context.Context, doc *dom.Document, node *dom.Element, baseURL string, sb Sandbox) *Task {
	if node.TagName != "script" || !classify.IsExecutableScriptType(node) {
		return completedTask()
	}

	src := node.GetAttribute("src")

	// already installed: src points at wrapped code in the blob store
	if IsBlobURL(src) {
		return completedTask()
	}

	if sb == nil {
		if src != "" {
			node.SetAttribute("src", AbsoluteURL(baseURL, src))
		}
		return completedTask()
	}

	if src != "" {
		resolved := AbsoluteURL(baseURL, src)
		node.RemoveAttribute("src")
		node.SetAttribute(SrcAttr, resolved)
		p.notifyTransform()

		task := newTask()
		go p.fetchAndInstall(ctx, doc, node, resolved, sb, task)
		return task
	}

	if text := node.TextContent(); text != "" {
		node.SetTextContent(sb.MakeEvaluateFactory(text, ""))
		p.notifyTransform()
	}
	return completedTask()
}

func (p *Pipeline) fetchAndInstall(ctx context.Context, doc *dom.Document, node *dom.Element, resolved string, sb Sandbox, task *Task) {
	code, err := p.fetch(ctx, resolved)
	if err != nil {
		p.logger.Warn("script fetch failed",
			zap.String("url", resolved),
			zap.Error(err),
		)
		task.fail(err)
		return
	}

	wrapped := sb.MakeEvaluateFactory(code, resolved)

	doc.Sync(func() {
		if node.OwnerDocument() != doc {
			// owning app unmounted while the fetch was in flight
			p.logger.Debug("discarding wrapped code for detached script",
				zap.String("url", resolved),
			)
			// notify before completing the task so a waiter observes
			// the stale count
			if p.onStale != nil {
				p.onStale()
			}
			task.discard()
			return
		}
		blobURL := p.blobs.Create(wrapped, "application/javascript")
		node.SetAttribute("src", blobURL)
		task.install(blobURL)
	})
}

// AbsoluteURL resolves a possibly-relative reference against a base URL.
// Unparseable input is returned unchanged.
func AbsoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
