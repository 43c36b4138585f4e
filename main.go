// The main package for the albumcrawler executable.
package main

import (
	"github.com/aotydata/album-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
