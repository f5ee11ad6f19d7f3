package database

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

type databaseImplementation struct {
	gormDb *gorm.DB
}

// NewDBConnection opens the results database and migrates its tables.
func NewDBConnection(dbConfig datamodels.PostgresConfig) (ResultsDatabase, error) {
	connString := MakeConnectionString(&dbConfig)

	gormConfig := &gorm.Config{
		Logger: slogGorm.New(),
	}

	gormDb, err := gorm.Open(postgres.Open(connString), gormConfig)
	if err != nil {
		return nil, errors.WrapE(errors.New("cannot open results database"), err)
	}

	slog.Info("Connected to results database",
		"host", dbConfig.Host, "database", dbConfig.Database, "user", dbConfig.User)

	db := &databaseImplementation{gormDb: gormDb}
	if err := db.Migrate(); err != nil {
		return nil, errors.WrapE(errors.New("cannot migrate results tables"), err)
	}
	return db, nil
}

func MakeConnectionString(dbConfig *datamodels.PostgresConfig) string {
	if dbConfig.URI != "" {
		return dbConfig.URI
	}

	sslMode := dbConfig.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	hostPort := net.JoinHostPort(dbConfig.Host, strconv.Itoa(dbConfig.Port))

	if dbConfig.Password == "" {
		slog.Warn("No password provided for database connection, using empty password")
		return fmt.Sprintf("postgres://%s@%s/%s?sslmode=%s",
			dbConfig.User, hostPort, dbConfig.Database, sslMode)
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, hostPort, dbConfig.Database, sslMode)
}
