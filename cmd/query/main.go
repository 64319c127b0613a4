// Single-domain debugging entrypoint - delegates to cli.NewDNSCheckCommand.
package main

import (
	"fmt"
	"os"

	"github.com/exddc/domain-discovery-go/internal/cli"
)

func main() {
	cmd := cli.NewDNSCheckCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
