// Package mainboilerplate contains shared boilerplate for livesql programs.
// The idea is to provide a selection of narrowly scoped methods so callers
// do not have to buy-in to an all-or-nothing approach.
package mainboilerplate

// Version and BuildDate of the program. Both are set at link time, eg:
//
//	go build -ldflags "-X go.livesql.dev/core/mainboilerplate.Version=v1.2.3"
var (
	Version   = "development"
	BuildDate = "unknown"
)
