package intercept

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/script"
)

type fakeSandbox struct{}

func (fakeSandbox) MakeEvaluateFactory(code, url string) string {
	return "/*wrapped:" + url + "*/" + code
}

// fakeOracle attributes nodes carrying a data-app attribute to the app
// named by it.
type fakeOracle struct {
	configs map[string]*SandboxConfig
}

func (o *fakeOracle) OwnedByMicroApp(node *dom.Element) bool {
	return node.HasAttribute("data-app")
}

func (o *fakeOracle) SandboxConfig(node *dom.Element) *SandboxConfig {
	return o.configs[node.GetAttribute("data-app")]
}

type fixture struct {
	doc         *dom.Document
	container   *dom.Element
	cfg         *SandboxConfig
	oracle      *fakeOracle
	pipeline    *script.Pipeline
	interceptor *Interceptor
}

func newFixture(t *testing.T, fetch script.FetchFunc, opts Options) *fixture {
	t.Helper()

	doc := dom.NewDocument()
	doc.BaseURI = "https://host/app/"

	container := dom.NewElement("div")
	container.SetAttribute("id", "app-a-container")
	doc.Body.Element.AppendChild(container)

	cfg := &SandboxConfig{
		AppID:        "app-a",
		GetContainer: func() *dom.Element { return container },
		Sandbox:      fakeSandbox{},
	}
	oracle := &fakeOracle{configs: map[string]*SandboxConfig{"app-a": cfg}}

	if fetch == nil {
		fetch = func(ctx context.Context, url string) (string, error) {
			return "window.loaded = true", nil
		}
	}
	pipeline := script.NewPipeline(fetch, script.NewBlobStore(), nil)

	interceptor := New(doc, oracle, pipeline, nil, nil, opts)
	interceptor.Patch()

	return &fixture{
		doc:         doc,
		container:   container,
		cfg:         cfg,
		oracle:      oracle,
		pipeline:    pipeline,
		interceptor: interceptor,
	}
}

func appStyle() *dom.Element {
	node := dom.NewElement("style")
	node.SetAttribute("data-app", "app-a")
	return node
}

func appScript(src string) *dom.Element {
	node := dom.NewElement("script")
	node.SetAttribute("data-app", "app-a")
	if src != "" {
		node.SetAttribute("src", src)
	}
	return node
}

func TestPatchIsIdempotent(t *testing.T) {
	f := newFixture(t, nil, Options{})

	// second install must not add another interception layer
	f.interceptor.Patch()
	assert.True(t, f.interceptor.Patched())

	node := appStyle()
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)
	assert.True(t, f.container.Contains(node))
	assert.Len(t, f.cfg.DynamicStyleSheetElements, 1)

	// one unpatch fully restores baseline behavior
	f.interceptor.Unpatch()
	assert.False(t, f.interceptor.Patched())

	restored := appStyle()
	_, err = f.doc.Head.AppendChild(restored)
	require.NoError(t, err)
	assert.True(t, f.doc.Head.Element.Contains(restored))
	assert.False(t, f.container.Contains(restored))
}

func TestNonHijackedPassThrough(t *testing.T) {
	f := newFixture(t, nil, Options{})

	// tag not hijackable
	div := dom.NewElement("div")
	div.SetAttribute("data-app", "app-a")
	_, err := f.doc.Head.AppendChild(div)
	require.NoError(t, err)
	assert.True(t, f.doc.Head.Element.Contains(div))

	// hijackable tag, but not owned by a micro-app
	hostStyle := dom.NewElement("style")
	_, err = f.doc.Head.AppendChild(hostStyle)
	require.NoError(t, err)
	assert.True(t, f.doc.Head.Element.Contains(hostStyle))

	// removal is delegated too
	_, err = f.doc.Head.RemoveChild(hostStyle)
	require.NoError(t, err)
	assert.False(t, f.doc.Head.Element.Contains(hostStyle))
}

func TestStyleRedirection(t *testing.T) {
	f := newFixture(t, nil, Options{})

	node := appStyle()
	returned, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)
	assert.Same(t, node, returned)

	assert.True(t, f.container.Contains(node), "node must land in the app container")
	assert.False(t, f.doc.Head.Element.Contains(node), "node must not land in the shared head")
	assert.Equal(t, "head", node.GetAttribute(TargetAttr))

	// exactly once in the dynamic stylesheet registry, even if the app
	// re-inserts the same node
	f.doc.Head.AppendChild(node)
	count := 0
	for _, el := range f.cfg.DynamicStyleSheetElements {
		if el == node {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestInsertBeforeHonorsContainerReference(t *testing.T) {
	f := newFixture(t, nil, Options{})

	anchor := dom.NewElement("p")
	f.container.AppendChild(anchor)

	node := appStyle()
	_, err := f.doc.Head.InsertBefore(node, anchor)
	require.NoError(t, err)
	require.Len(t, f.container.Children, 2)
	assert.Same(t, node, f.container.Children[0])

	// a reference outside the container degrades to append
	stranger := dom.NewElement("p")
	f.doc.Body.Element.AppendChild(stranger)

	second := appStyle()
	_, err = f.doc.Head.InsertBefore(second, stranger)
	require.NoError(t, err)
	assert.Same(t, second, f.container.Children[len(f.container.Children)-1])
}

func TestScriptSandboxing(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, url string) (string, error) {
		return "window.loaded = true", nil
	}, Options{})

	node := appScript("./a.js")
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)

	assert.True(t, f.container.Contains(node))
	assert.Equal(t, "https://host/app/a.js", node.GetAttribute(script.SrcAttr))

	task := f.interceptor.TaskFor(node)
	require.NotNil(t, task)
	require.NoError(t, task.Wait(context.Background()))
	require.True(t, task.Installed())

	blobURL := node.GetAttribute("src")
	require.True(t, script.IsBlobURL(blobURL))

	content, _, err := f.pipeline.Blobs().Get(blobURL)
	require.NoError(t, err)
	assert.Equal(t, "/*wrapped:https://host/app/a.js*/window.loaded = true", content)
}

func TestStaleFetchDiscard(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(ctx context.Context, url string) (string, error) {
		<-release
		return "window.loaded = true", nil
	}, Options{})

	node := appScript("./a.js")
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)
	task := f.interceptor.TaskFor(node)
	require.NotNil(t, task)

	// the whole container goes away before the fetch resolves
	f.container.Detach()
	close(release)

	require.NoError(t, task.Wait(context.Background()))
	assert.True(t, task.Discarded())
	assert.False(t, node.HasAttribute("src"))
	assert.Equal(t, 0, f.pipeline.Blobs().Len(), "no residual in-memory resource")
}

func TestRemoveResolvesThroughContainer(t *testing.T) {
	f := newFixture(t, nil, Options{})

	node := appStyle()
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)
	require.True(t, f.container.Contains(node))

	// the caller removes from the shared head, where the node never was
	removed, err := f.doc.Head.RemoveChild(node)
	require.NoError(t, err)
	assert.Same(t, node, removed)
	assert.False(t, f.container.Contains(node))
	assert.Empty(t, f.cfg.DynamicStyleSheetElements)
}

func TestRemoveNeverPropagatesErrors(t *testing.T) {
	f := newFixture(t, nil, Options{})

	// hijacked node that was never inserted anywhere
	node := appStyle()
	_, err := f.doc.Head.RemoveChild(node)
	assert.NoError(t, err, "hijacked removal must not break caller control flow")
}

func TestRemoveRevokesInstalledBlob(t *testing.T) {
	f := newFixture(t, nil, Options{})

	node := appScript("./a.js")
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)

	task := f.interceptor.TaskFor(node)
	require.NoError(t, task.Wait(context.Background()))
	require.Equal(t, 1, f.pipeline.Blobs().Len())

	_, err = f.doc.Head.RemoveChild(node)
	require.NoError(t, err)
	assert.Equal(t, 0, f.pipeline.Blobs().Len())
}

func TestConvertLinkToStyle(t *testing.T) {
	cssFetched := make(chan struct{})
	fetch := func(ctx context.Context, url string) (string, error) {
		defer close(cssFetched)
		return ".app { color: red; }", nil
	}
	f := newFixture(t, fetch, Options{ConvertLinkToStyle: true, Fetch: fetch})

	link := dom.NewElement("link")
	link.SetAttribute("data-app", "app-a")
	link.SetAttribute("rel", "stylesheet")
	link.SetAttribute("href", "./theme.css")

	_, err := f.doc.Head.AppendChild(link)
	require.NoError(t, err)

	// the link itself is not inserted; a style artifact is
	assert.False(t, f.container.Contains(link))
	require.Len(t, f.container.Children, 1)
	styleNode := f.container.Children[0]
	assert.Equal(t, "style", styleNode.TagName)
	assert.Equal(t, "https://host/app/theme.css", styleNode.GetAttribute(script.SrcAttr))

	select {
	case <-cssFetched:
	case <-time.After(5 * time.Second):
		t.Fatal("stylesheet fetch never ran")
	}
	require.Eventually(t, func() bool {
		var text string
		f.doc.Sync(func() { text = styleNode.TextContent() })
		return text == ".app { color: red; }"
	}, 5*time.Second, 10*time.Millisecond)

	// removing the link finds and removes the style artifact
	_, err = f.doc.Head.RemoveChild(link)
	require.NoError(t, err)
	assert.Empty(t, f.container.Children)
	assert.Empty(t, f.cfg.DynamicStyleSheetElements)
}

func TestConcurrentInsertsDuringPatchCycling(t *testing.T) {
	f := newFixture(t, nil, Options{})

	done := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				node := appStyle()
				if _, err := f.doc.Head.AppendChild(node); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	// repeatedly tearing down and reinstalling while insertions are in
	// flight must make progress rather than wedging on lock order
	for n := 0; n < 200; n++ {
		f.interceptor.Unpatch()
		f.interceptor.Patch()
	}
	close(done)
	wg.Wait()

	assert.True(t, f.interceptor.Patched())
}

func TestUnpatchClearsSideTables(t *testing.T) {
	f := newFixture(t, nil, Options{})

	node := appScript("./a.js")
	_, err := f.doc.Head.AppendChild(node)
	require.NoError(t, err)
	require.NotNil(t, f.interceptor.TaskFor(node))

	f.interceptor.Unpatch()
	assert.Nil(t, f.interceptor.TaskFor(node))
}
