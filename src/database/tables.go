package database

import (
	"volbot/src/datamodels"
)

// Migrate creates or updates the result tables.
func (d *databaseImplementation) Migrate() error {
	return d.gormDb.AutoMigrate(
		&datamodels.RunRow{},
		&datamodels.FitSummaryRow{},
		&datamodels.ForecastRecordRow{},
		&datamodels.EvalScoreRow{},
	)
}
