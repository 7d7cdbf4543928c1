// Package pixel holds the image buffers exchanged during a render.
//
// A Buffer is the full-resolution image owned by the coordinator. It tracks
// which pixels have been written so that overlapping or missing work is
// detected before the image is handed off. A Patch is a rectangular piece of
// an image together with the descriptor that says where it belongs; workers
// shade into patches and the coordinator places them by descriptor, never by
// arrival order.
package pixel
