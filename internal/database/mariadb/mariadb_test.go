//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port())

	var pool *Pool
	// The port opens before the server accepts logins during first-run init.
	for range 30 {
		pool, err = NewPool(dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAttendanceRepository(pool)

	morning := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)
	later := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)

	marked, err := repo.Mark(ctx, "Alice", morning)
	if err != nil || !marked {
		t.Fatalf("Expected first mark to succeed, got %v %v", marked, err)
	}
	marked, err = repo.Mark(ctx, "Alice", later)
	if err != nil || marked {
		t.Fatalf("Expected duplicate mark to be ignored, got %v %v", marked, err)
	}
	if _, err := repo.Mark(ctx, "Bob", later); err != nil {
		t.Fatalf("Failed to mark Bob: %v", err)
	}

	rows, err := repo.List(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Alice" || rows[0].Date != "2024-03-01" || rows[0].Time != "08:15:00" {
		t.Errorf("Unexpected first row %+v", rows[0])
	}

	none, err := repo.List(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no rows, got %d", len(none))
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	if err := pool.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Second EnsureSchema failed: %v", err)
	}
}
