// Command tickrun runs block diagrams at a fixed rate.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tickrun/tickrun/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
