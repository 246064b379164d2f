// Package kit holds small transport plumbing: a transport-agnostic
// Endpoint type and an adapter that mounts an Endpoint as an MCP tool.
// The HTTP surface does not go through this package.
package kit

import "context"

// Endpoint is one business operation, independent of transport. The
// request and response are plain values; adapters handle decoding and
// encoding.
type Endpoint func(ctx context.Context, request any) (any, error)
