// Package testutil provides common constants, builders and mocks for tests
package testutil

import "time"

const (
	// TestTimeout bounds contexts handed out by Context
	TestTimeout = 30 * time.Second

	// TestDimension is the embedding dimension used by mock providers
	TestDimension = 32

	// TestTableName is the reference table used across packages
	TestTableName = "well_repair_status"

	// TestQuestion is a question that should match TestTableName
	TestQuestion = "well repair status"
)
