// Package rpc implements a remote graphstore.CheckpointSource feed: a
// server that exposes an in-process CheckpointSource over gRPC, and a
// client that implements graphstore.CheckpointSource by calling it. It
// copies cmd/server/main.go's "manual ServiceDesc, JSON wire codec, no
// protobuf generation" pattern exactly, re-targeted at vertex-delta
// streaming instead of SQL exec/query.
package rpc

import "encoding/json"

// jsonCodec is the gRPC wire codec: every request/response is a plain Go
// struct marshaled with encoding/json instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)       { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error  { return json.Unmarshal(data, v) }
