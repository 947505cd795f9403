// Package confloader provides the configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources using koanf as the underlying library.
//
// Features:
//
//   - Multiple Sources: YAML files, environment variables, maps
//   - Watch Support: callbacks on changes to watched files
//   - Type Safety: Unmarshaling into typed structs
//   - Flattening: any loaded tree as dotted string keys
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables
//  3. Configuration files
//  4. Default values
package confloader
