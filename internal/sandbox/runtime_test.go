package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestEvaluateFactoryIsolation(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	wrapped := rt.MakeEvaluateFactory("leaked = 42; window.attached = 'yes';", "https://host/app/a.js")

	if _, err := rt.Execute(ctx, wrapped); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// writes landed on the private window
	if got := rt.Global("leaked"); got != int64(42) {
		t.Errorf("private window leaked = %v, want 42", got)
	}
	if got := rt.Global("attached"); got != "yes" {
		t.Errorf("private window attached = %v, want yes", got)
	}

	// the shared global never saw them
	result, err := rt.Execute(ctx, "typeof leaked")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Value != "undefined" {
		t.Errorf("shared global saw leaked = %v", result.Value)
	}
}

func TestEvaluateFactoryReadsFallThrough(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	wrapped := rt.MakeEvaluateFactory("result = String(Math.sqrt(16));", "")
	if _, err := rt.Execute(context.Background(), wrapped); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := rt.Global("result"); got != "4" {
		t.Errorf("result = %v, want 4", got)
	}
}

func TestEvaluateFactorySourceURL(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	wrapped := rt.MakeEvaluateFactory("x = 1", "https://host/a.js")
	if !strings.Contains(wrapped, "//# sourceURL=https://host/a.js") {
		t.Error("expected sourceURL comment in wrapped code")
	}

	bare := rt.MakeEvaluateFactory("x = 1", "")
	if strings.Contains(bare, "sourceURL") {
		t.Error("unexpected sourceURL comment for inline code")
	}
}

func TestRuntimeSecurity(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	dangerousScripts := []struct {
		name   string
		script string
	}{
		{
			name:   "require blocked",
			script: "require('fs')",
		},
		{
			name:   "process blocked",
			script: "process.exit(1)",
		},
		{
			name:   "module blocked",
			script: "module.exports = {}",
		},
	}

	for _, tt := range dangerousScripts {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := rt.Execute(context.Background(), tt.script)
			if result != nil && result.Value != nil {
				t.Errorf("Dangerous script executed successfully: %v", result.Value)
			}
		})
	}
}

func TestRuntimeTimeout(t *testing.T) {
	rt, err := New(Config{
		Timeout:       100 * time.Millisecond,
		MaxCallStack:  1024,
		EnableConsole: true,
	})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	script := `
		let i = 0;
		while(true) {
			i++;
		}
	`
	if _, err := rt.Execute(context.Background(), script); err == nil {
		t.Error("Expected timeout error, got nil")
	}
}

func TestRuntimeConsoleCapture(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	wrapped := rt.MakeEvaluateFactory(`
		console.log('info message');
		console.warn('warning message');
		console.error('error message');
	`, "")

	result, err := rt.Execute(context.Background(), wrapped)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Console) != 3 {
		t.Fatalf("Expected 3 console entries, got %d", len(result.Console))
	}

	levels := []string{"log", "warn", "error"}
	for i, entry := range result.Console {
		if entry.Level != levels[i] {
			t.Errorf("Console entry %d: expected level %s, got %s", i, levels[i], entry.Level)
		}
	}
}

func TestRuntimeReset(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer rt.Close()

	if err := rt.SetGlobal("stale", true); err != nil {
		t.Fatalf("SetGlobal() error = %v", err)
	}
	if err := rt.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := rt.Global("stale"); got != nil {
		t.Errorf("private window survived reset: %v", got)
	}
}

func TestPoolExecute(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	result, err := pool.Execute(ctx, "Math.sqrt(16)")
	if err != nil {
		t.Fatalf("Pool.Execute() error = %v", err)
	}
	if result.Value == nil {
		t.Error("Expected non-nil result value")
	}

	for i := 0; i < 5; i++ {
		if _, err := pool.Execute(ctx, "1 + 1"); err != nil {
			t.Errorf("Iteration %d: Execute() error = %v", i, err)
		}
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	defer pool.Close()

	rt, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Failed to acquire runtime: %v", err)
	}

	if _, err := rt.Execute(context.Background(), "42"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if err := pool.Release(rt); err != nil {
		t.Errorf("Failed to release runtime: %v", err)
	}
}
