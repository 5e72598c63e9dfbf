package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/storage"
	"github.com/papercomputeco/factory/pkg/storage/postgres"
	"github.com/papercomputeco/factory/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("FACTORY_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("FACTORY_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = storagetest.DescribeDriver("postgres", func(ctx context.Context) storage.Driver {
	driver, err := postgres.NewDriver(ctx, connStr())
	Expect(err).NotTo(HaveOccurred())

	// Clean all tables before each test for isolation.
	for _, table := range []string{"runs", "artifacts", "memory_vectors", "memories", "projects", "kv"} {
		_, err = driver.DB().ExecContext(ctx, "DELETE FROM "+table)
		Expect(err).NotTo(HaveOccurred())
	}
	return driver
})
