package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// proxyName is the VM-global name the evaluate factory binds against.
const proxyName = "__hoist_proxy__"

// targetName is the plain object behind the proxy, reachable from Go for
// inspection.
const targetName = "__hoist_target__"

// bootstrap installs the private window: an ES Proxy whose has trap
// captures every free-variable lookup inside the factory's with block.
// Reads miss through to the host global so library code still sees
// console, Math, and friends; writes always land on the private target.
const bootstrap = `
var __hoist_host__ = this;
var ` + proxyName + ` = new Proxy(` + targetName + `, {
	has: function() { return true; },
	get: function(target, key) {
		if (key === Symbol.unscopables) return undefined;
		if (key in target) return target[key];
		return __hoist_host__[key];
	},
	set: function(target, key, value) {
		target[key] = value;
		return true;
	}
});
` + targetName + `.window = ` + proxyName + `;
` + targetName + `.self = ` + proxyName + `;
` + targetName + `.globalThis = ` + proxyName + `;
`

// Runtime wraps a goja VM with a private proxy window
type Runtime struct {
	vm     *goja.Runtime
	target *goja.Object
	config Config
	mu     sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Interrupt channel
	interrupt chan struct{}
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{
		config:    config,
		console:   []LogEntry{},
		interrupt: make(chan struct{}),
	}
	if err := r.setup(); err != nil {
		return nil, err
	}
	return r, nil
}

// MakeEvaluateFactory wraps code so that, when executed, its free
// variables bind against the private window instead of the shared global.
// A non-empty url is recorded as a sourceURL comment for traceability.
func (r *Runtime) MakeEvaluateFactory(code, url string) string {
	sourceURL := ""
	if url != "" {
		sourceURL = "//# sourceURL=" + url + "\n"
	}
	return fmt.Sprintf(
		";(function(window, self, globalThis){with(window){;%s\n%s}}).call(%s, %s, %s, %s);",
		code, sourceURL, proxyName, proxyName, proxyName, proxyName,
	)
}

// Execute runs JavaScript code with timeout and resource limits
func (r *Runtime) Execute(ctx context.Context, code string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{Console: []LogEntry{}}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-r.interrupt:
			return
		}
	}()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(code)

	close(r.interrupt)
	r.interrupt = make(chan struct{})

	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		return result, err
	}

	result.Value = exportValue(val)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	return result, nil
}

// Global reads a property from the private window.
func (r *Runtime) Global(name string) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return exportValue(r.target.Get(name))
}

// SetGlobal sets a property on the private window.
func (r *Runtime) SetGlobal(name string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target.Set(name, value)
}

// setup configures the VM: dangerous globals removed, console capture,
// no-op timers, and the private window proxy.
func (r *Runtime) setup() error {
	vm := goja.New()
	r.vm = vm

	if r.config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		vm.Set("console", console)
	}

	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)

	r.target = vm.NewObject()
	vm.Set(targetName, r.target)
	if _, err := vm.RunString(bootstrap); err != nil {
		return fmt.Errorf("failed to install window proxy: %w", err)
	}
	return nil
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset clears the runtime state, including the private window.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console = []LogEntry{}
	return r.setup()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.target = nil
	r.console = nil
	return nil
}
