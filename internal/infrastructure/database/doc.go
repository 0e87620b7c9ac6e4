// Package database provides SQLite connectivity for the Console Core
// session store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded in the binary
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - The database file holds bearer tokens; permissions are 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Session.Store.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the top-level migrations/ directory and are
// embedded via migrations/embed.go. Each migration has both .up.sql and
// .down.sql variants named YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database
