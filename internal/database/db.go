package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 30 * time.Minute

	pingAttempts = 5
	pingBackoff  = 2 * time.Second
	pingTimeout  = 5 * time.Second
)

// Open connects to MySQL and verifies the connection before returning the
// pool. Startup may race the database container, so the first ping retries
// with a short backoff before giving up.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	var lastErr error
	for attempt := 0; attempt < pingAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(pingBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", pingAttempts, lastErr)
}

// dsn builds the MySQL connection string. parseTime maps DATE and DATETIME
// columns onto time.Time; loc=UTC keeps stored event dates unambiguous.
func dsn(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)
}
