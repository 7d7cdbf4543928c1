// Package transport moves typed envelopes between the ranks of one render.
//
// The topology is a star centered on rank 0: the coordinator may send to any
// worker and every worker may send to the coordinator, but workers never
// talk to each other. Three endpoint implementations are provided. The
// in-process network runs every rank in one binary and still serializes each
// envelope through the Codec, so no memory is shared between ranks. The TCP
// endpoints use length-prefixed frames over one connection per worker. The
// NATS endpoints publish on one subject per rank.
//
// All operations block until they complete or their context is canceled;
// there are no built-in timeouts.
package transport
