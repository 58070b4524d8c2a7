// Command coldeye runs the admin auth server and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newCLI().RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "coldeye:", err)
		os.Exit(1)
	}
}
