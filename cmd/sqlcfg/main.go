// Command sqlcfg reads and writes hierarchical configuration stored in an
// embedded SQLite file.
package main

import "github.com/mesh-intelligence/sqlcfg/internal/cli"

func main() {
	cli.Execute()
}
