package rpc

import (
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

var registerCodecOnce sync.Once

// registerCodec installs jsonCodec with the grpc encoding registry exactly
// once per process, mirroring a package-level
// encoding.RegisterCodec(jsonCodec{}) call (done
// lazily here since rpc is a library package, not a main with an init-time
// flag parse to hang the call off).
func registerCodec() {
	registerCodecOnce.Do(func() {
		encoding.RegisterCodec(jsonCodec{})
	})
}

// Dial connects to a checkpoint-feed server at addr over plaintext gRPC
// using the JSON wire codec, with the usual federated query client's
// dial options (grpc.WithTransportCredentials(insecure.NewCredentials()),
// grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}))).
func Dial(addr string) (*CheckpointFeedClient, *grpc.ClientConn, error) {
	registerCodec()
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return NewCheckpointFeedClient(conn), conn, nil
}

// Serve registers srv on s under the checkpoint-feed service descriptor.
// Callers start s.Serve(listener) themselves: construct the *grpc.Server,
// register, then serve in its own goroutine.
func Serve(s *grpc.Server, srv CheckpointFeedServer) {
	registerCodec()
	RegisterCheckpointFeedServer(s, srv)
}
