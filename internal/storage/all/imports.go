// Package all wires every built-in storage backend into the storage registry.
// Import it for side effects:
//
//	import _ "carprep/internal/storage/all"
//
// after which storage.New accepts kinds "postgres", "mysql", "mssql" and
// "sqlite".
package all

import (
	_ "carprep/internal/storage/mssql"
	_ "carprep/internal/storage/mysql"
	_ "carprep/internal/storage/postgres"
	_ "carprep/internal/storage/sqlite"
)
