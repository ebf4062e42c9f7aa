// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/Itish41/DocIntel/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FixedTime is the clock value tests patch in.
var FixedTime = time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

// NewSQLiteDB opens an isolated in-memory database with the schema migrated.
// A single connection keeps the in-memory database alive for the test.
func NewSQLiteDB(t *testing.T, dst ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(append([]interface{}{&models.Document{}}, dst...)...))
	return db
}

// SeedDocument inserts a document with the given status and returns it.
func SeedDocument(t *testing.T, db *gorm.DB, status models.ProcessingStatus, mutate ...func(*models.Document)) *models.Document {
	t.Helper()

	path := "seed/" + string(status) + ".txt"
	doc := &models.Document{
		Title:            "Seed " + string(status),
		Author:           "Ada Lovelace",
		FileName:         "seed.txt",
		ContentType:      "text/plain",
		FileSize:         12,
		DocumentType:     models.DocumentTypeTXT,
		StoragePath:      &path,
		ProcessingStatus: status,
		UploadDate:       FixedTime,
		UploadedBy:       "ada",
	}
	for _, m := range mutate {
		m(doc)
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}
