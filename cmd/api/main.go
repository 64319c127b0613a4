// Domain discovery API server entrypoint - delegates to cli.NewServerCommand.
//
//go:generate go run github.com/swaggo/swag/cmd/swag@latest init -g cmd/api/main.go -o internal/api/docs --parseDependency --parseInternal
package main

import (
	"fmt"
	"os"

	_ "github.com/exddc/domain-discovery-go/internal/api/docs" // swagger docs
	"github.com/exddc/domain-discovery-go/internal/cli"
)

// @title Domain Discovery Suggestion API
// @version 1.0.0
// @description Generates and checks candidate domain names for availability.
// @description Suggestions can be requested buffered or streamed via server-sent events.
//
// @contact.name Domain Discovery
// @contact.url https://github.com/exddc/domain-discovery-go
// @contact.email contact@example.com
//
// @license.name MIT
// @license.url https://github.com/exddc/domain-discovery-go/blob/main/LICENSE
//
// @host localhost:5000
// @BasePath /
// @schemes http https
//
// @tag.name Suggestions
// @tag.description Domain suggestion generation and rating
// @tag.name System
// @tag.description System health and metrics
func main() {
	cmd := cli.NewServerCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
