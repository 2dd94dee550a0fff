// Package config provides 12-factor configuration for the interception
// layer and the resource-host daemon.
//
// Configuration is loaded from HOIST_-prefixed environment variables
// with sensible defaults.
//
// Configuration Sections:
//   - Server: resource-host HTTP settings (port, host)
//   - Fetch: external resource fetch timeouts, retries, rate limit
//   - Sandbox: script sandbox timeout and runtime pool size
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Resource host on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
