// Command verifier gates backtested trading strategies before deployment.
package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/strategy-verifier/internal/cli"
)

// #region main

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// #endregion main
