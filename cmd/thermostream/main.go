// thermostream - mass-spectrometry recording conversion tool
package main

import (
	"fmt"
	"os"

	"github.com/mzio/thermostream/cmd/thermostream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
