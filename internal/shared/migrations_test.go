package shared

import (
	"path/filepath"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("second run should be a no-op, got %v", err)
		}

		if _, err := db.Exec("SELECT key, value FROM settings LIMIT 1"); err != nil {
			t.Errorf("settings table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM settings LIMIT 1"); err == nil {
			t.Error("settings table should be dropped after rollback")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("stripComments", func(t *testing.T) {
		got := stripComments("-- heading\nCREATE TABLE x (id INT) -- trailing\n")
		if got != "CREATE TABLE x (id INT)" {
			t.Errorf("unexpected statement %q", got)
		}
	})
}
