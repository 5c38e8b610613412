// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, metrics, and debug introspection for hioload-net.
// Provides concurrent-safe primitives:
//   - Immutable snapshot config reads, atomic merges, TOML file loading
//   - Reload observers notified on config changes
//   - Counter registry wired into the transport loops
//   - Debug probe registration and state export
package control
