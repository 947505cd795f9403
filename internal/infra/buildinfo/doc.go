// Package buildinfo provides build information for vaultgate.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// Commit and GoVersion fall back to the VCS stamp and runtime recorded
// by the Go toolchain when not injected.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/vaultgate/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
