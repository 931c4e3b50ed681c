// Command sqlshift migrates T-SQL views to PostgreSQL or MySQL.
package main

import (
	"os"

	"github.com/sqlshift/sqlshift/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
