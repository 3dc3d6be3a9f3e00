// Package kdtree implements a static, median-balanced k-d tree over points in
// k-dimensional space together with an exact nearest-neighbor search.
//
// A tree is built once with Build and is read-only afterwards, so any number of
// goroutines may call Nearest on it concurrently. Coordinates may be any
// integer or floating point type; distances are always reported as float64.
package kdtree
