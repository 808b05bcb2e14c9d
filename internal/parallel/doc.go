// Package parallel fans remote calls out across goroutines.
//
// WorkerPool bounds how many submitted functions run at once. A limit of 0
// means every submitted function starts immediately.
package parallel
