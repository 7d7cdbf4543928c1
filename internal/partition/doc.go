// Package partition decides which process renders which pixels.
//
// Every static strategy is a pure function of the grid size, the process
// count, the rank and (for cycles) the group size. All ranks compute their
// own assignment independently and agree on the result, so the assignments of
// one render are pairwise disjoint and together cover the grid exactly once.
// Remainder units (an extra column, row or group) always go to the lowest
// ranks first.
//
// The dynamic strategy has no static plan; Tiles returns the block queue the
// coordinator hands out on demand.
package partition
