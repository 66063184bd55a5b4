// Command erdctl converts ERDs into SQL schemas, validates and normalizes
// them, and applies the result to a database.
package main

import (
	"os"

	_ "github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-schema/pkg/adapters/datasource/sqlite"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
