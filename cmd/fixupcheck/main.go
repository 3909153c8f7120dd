// Command fixupcheck runs the fixup scenario matrix against the catalog model
// and reports whether every scenario converges.
//
//	fixupcheck matrix --states added,unchanged --format yaml
//	FIXUPCHECK_WORKERS=4 fixupcheck matrix
//	fixupcheck model
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
