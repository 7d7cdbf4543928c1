// Package worker runs the shading loop of a non-coordinator rank.
//
// In the static modes a worker plans its own assignment, shades it into
// private patches, and sends them to rank 0 in a single result message. In the
// dynamic mode it serves blocks handed out by the coordinator one at a time
// until it receives the termination marker; every result it sends is also
// its request for the next block.
//
// A shading failure aborts the worker. It reports the failure to rank 0
// without any partial pixels and returns the error; nothing is retried.
package worker
