// Package shutdown provides signal-driven lifecycle handling for
// long-running vaultgate commands.
//
// This package handles process signals:
//
//   - SIGINT, SIGTERM: run shutdown hooks under a timeout, then return
//   - SIGHUP: run reload hooks and keep waiting
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnReload(epoch.Reload)
//	h.OnShutdown(watcher.Close)
//	err := h.Wait(ctx)
package shutdown
