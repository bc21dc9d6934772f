// Inspect a B+ tree index file (.idx).
// Usage: go run ./cmd/inspect_idx <path-to-.idx>
package main

import (
	"fmt"
	"os"

	bplus "CinderDB/bplustree"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index.idx>\n", os.Args[0])
		os.Exit(1)
	}
	if err := bplus.InspectIndexFile(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
