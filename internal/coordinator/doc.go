// Package coordinator runs rank 0 of a render.
//
// The coordinator owns the final image buffer. In the static modes it shades
// its own assignment, then gathers one result from every worker whose plan is
// non-empty and places the patches by their region descriptors, so arrival
// order never matters. In the dynamic mode it owns the block queue and hands
// out one block per request until the queue is empty, then sends each worker
// a termination marker.
//
// Any worker failure, protocol violation or transport error aborts the
// render. The buffer is returned only when every pixel has been assembled.
package coordinator
