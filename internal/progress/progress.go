// Package progress defines the progress types shared by the render loop and
// the presentation layer.
package progress

// ProgressUpdate reports the assembled fraction of one render.
type ProgressUpdate struct {
	// Index identifies the render within a comparison run.
	Index int
	// Value is the assembled fraction in [0, 1].
	Value float64
}

// ProgressCallback receives the assembled fraction in [0, 1].
type ProgressCallback func(value float64)

// ToChannel returns a callback that forwards values for render index to ch
// without blocking. Updates are dropped while ch is full; the display only
// needs the latest value.
func ToChannel(ch chan<- ProgressUpdate, index int) ProgressCallback {
	return func(value float64) {
		select {
		case ch <- ProgressUpdate{Index: index, Value: value}:
		default:
		}
	}
}
