// Package all registers every run history backend.
package all

import (
	_ "colmerge/internal/storage/mssql"
	_ "colmerge/internal/storage/postgres"
	_ "colmerge/internal/storage/sqlite"
)
