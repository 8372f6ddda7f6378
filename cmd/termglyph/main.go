// Package main is the entry point for the termglyph application
package main

import (
	"github.com/termglyph/termglyph/cmd"
)

func main() {
	cmd.Execute()
}
