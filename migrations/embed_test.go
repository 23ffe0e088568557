package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedFS_ContainsMigrationFiles(t *testing.T) {
	// Given: The embedded filesystem
	// When: We read the directory
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to read embedded FS: %v", err)
	}

	// Then: It contains the initial schema migration
	found := false
	for _, entry := range entries {
		if entry.Name() == "001_initial_schema.sql" {
			found = true
			break
		}
	}

	if !found {
		t.Error("001_initial_schema.sql not found in embedded FS")
	}
}

func TestEmbeddedFS_MigrationFileReadable(t *testing.T) {
	content, err := FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	contentStr := string(content)
	if len(contentStr) == 0 {
		t.Fatal("migration file is empty")
	}

	for _, marker := range []string{
		"-- +goose Up",
		"-- +goose Down",
		"CREATE TABLE goals",
		"CREATE TABLE plans",
		"CREATE TABLE ai_task_completions",
		"CREATE TABLE user_achievements",
	} {
		if !strings.Contains(contentStr, marker) {
			t.Errorf("migration missing %q", marker)
		}
	}
}

func TestEmbeddedFS_UniquenessBackstops(t *testing.T) {
	content, err := FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	// Duplicate unlocks and duplicate overlay rows are rejected by the schema itself.
	for _, constraint := range []string{
		"UNIQUE (user_id, achievement_id)",
		"UNIQUE (plan_id, task_key, owner_id)",
	} {
		if !strings.Contains(string(content), constraint) {
			t.Errorf("migration missing constraint %q", constraint)
		}
	}
}
