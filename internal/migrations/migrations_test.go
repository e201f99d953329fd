package migrations

import (
	"context"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreOrderedGooseFiles(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for i, name := range files {
		if !strings.HasSuffix(name, ".sql") {
			t.Fatalf("unexpected file %s", name)
		}
		if i > 0 && files[i-1] >= name {
			t.Fatalf("migrations out of order: %s before %s", files[i-1], name)
		}
		body, err := embedded.ReadFile("sql/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}

func TestRunRequiresDSN(t *testing.T) {
	if err := Run(context.Background(), "", "up"); err == nil {
		t.Fatalf("expected error without a database url")
	}
}
