package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"story-syndication/infrastructure/configuration"

	_ "github.com/lib/pq"
)

func postgresDSN(cfg configuration.Db) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// NewPostgreSQLDB opens the ledger database with lib/pq.
func NewPostgreSQLDB() (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresDSN(configuration.C.Database.Psql))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
