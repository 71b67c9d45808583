//go:build !unix

package progress

import "os"

func querySize(f *os.File) (rows, cols int, ok bool) {
	return 0, 0, false
}

func notifyResize(ch chan<- os.Signal) {}
