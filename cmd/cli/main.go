// Suggestion CLI entrypoint - delegates to cli.Execute (suggest/dnscheck/server/worker).
package main

import "github.com/exddc/domain-discovery-go/internal/cli"

func main() {
	cli.Execute()
}
