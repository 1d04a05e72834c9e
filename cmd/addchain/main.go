// Command addchain searches short addition chains and decomposes them into
// double/add steps.
//
//	addchain search 2^255-21
//	addchain steps 1 2 3 6 7 10 20 40 80 87
//	addchain table
//	addchain bound 0xffffffff
package main

import (
	"os"
)

func main() {
	// On failure cobra prints the error, so only the exit status is left
	if newRootCmd().Execute() != nil {
		os.Exit(1)
	}
}
