package db

import (
	"bundler/types"
)

type Database interface {
	Close() error
	EnsureDatabaseExists() error
	CreateTables() error
	DropTables() error

	Exec(query string, args ...any) error

	InsertSubmission(row *types.SubmittedBundle) error
	UpdateOutcome(bundleID string, outcome *types.Outcome) error

	QueryRecentSubmissions(limit uint) (types.SubmittedBundles, error)
	QueryLatestBundleIds(limit uint) ([]string, error)
}
