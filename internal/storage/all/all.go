// Package all registers every SQL dialect with internal/storage.
package all

import (
	_ "sherlouk/internal/storage/mssql"
	_ "sherlouk/internal/storage/mysql"
	_ "sherlouk/internal/storage/postgres"
	_ "sherlouk/internal/storage/sqlite"
)
