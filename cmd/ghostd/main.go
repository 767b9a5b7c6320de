// Command ghostd is the Ghost daemon entry point.
package main

import (
	"os"

	"github.com/ghostrunctl/ghost/internal/bootstrap"
)

func main() {
	os.Exit(bootstrap.Run())
}
