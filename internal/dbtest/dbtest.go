// Package dbtest provides in-memory databases and fixtures for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/insurai/claimdesk/internal/db"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates an in-memory SQLite database with all tables migrated.
// The pool is pinned to one connection so every query sees the same
// in-memory database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gormDB
}

// OpenFile creates a file-backed SQLite database with all tables migrated,
// for tests that need several connections at once. Transactions begin
// IMMEDIATE, so concurrent writers queue on the busy timeout instead of
// failing.
func OpenFile(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "claimdesk.db") + "?_busy_timeout=10000&_txlock=immediate"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gormDB
}

// User inserts a user with the given role.
func User(t *testing.T, gormDB *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Role: role}
	if err := gormDB.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Employee inserts an employee linked to a new EMPLOYEE user.
func Employee(t *testing.T, gormDB *gorm.DB, username string) *models.Employee {
	t.Helper()
	u := User(t, gormDB, username, models.RoleEmployee)
	e := &models.Employee{FullName: username, UserID: &u.ID, User: u}
	if err := gormDB.Omit("User").Create(e).Error; err != nil {
		t.Fatalf("create employee %s: %v", username, err)
	}
	return e
}

// Policy inserts a policy with the given claim limit.
func Policy(t *testing.T, gormDB *gorm.DB, code string, claimLimit int64) *models.Policy {
	t.Helper()
	p := &models.Policy{Code: code, Name: code, ClaimLimit: decimal.NewFromInt(claimLimit)}
	if err := gormDB.Create(p).Error; err != nil {
		t.Fatalf("create policy %s: %v", code, err)
	}
	return p
}

// Authorize maps an agent onto a policy.
func Authorize(t *testing.T, gormDB *gorm.DB, agentID, policyID uint) {
	t.Helper()
	if err := gormDB.Create(&models.AgentPolicy{AgentID: agentID, PolicyID: policyID}).Error; err != nil {
		t.Fatalf("authorize agent %d for policy %d: %v", agentID, policyID, err)
	}
}
