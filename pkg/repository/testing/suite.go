// Package testing provides a contract test suite for upload repositories.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittouploads/pkg/repository"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RepositoryTestSuite tests the uploads.Repository contract against any
// bundled implementation.
//
// Usage:
//
//	func TestMyRepository(t *testing.T) {
//	    suite := &testing.RepositoryTestSuite{
//	        NewRepository: func(t *testing.T) repository.Repository {
//	            return myrepo.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type RepositoryTestSuite struct {
	// NewRepository returns a fresh, empty repository for each test.
	// The suite closes it when the test ends.
	NewRepository func(t *testing.T) repository.Repository
}

// Run executes all tests in the suite.
func (suite *RepositoryTestSuite) Run(t *testing.T) {
	t.Run("CreateAndGet", suite.testCreateAndGet)
	t.Run("CreateWithoutMeta", suite.testCreateWithoutMeta)
	t.Run("CreateWithEmptyMeta", suite.testCreateWithEmptyMeta)
	t.Run("NumericMeta", suite.testNumericMeta)
	t.Run("DistinctIDs", suite.testDistinctIDs)
	t.Run("UpdateReplacesMeta", suite.testUpdateReplacesMeta)
	t.Run("UpdateNilMetaKeepsMeta", suite.testUpdateNilMetaKeepsMeta)
	t.Run("UpdateNotFound", suite.testUpdateNotFound)
	t.Run("DeleteThenLookup", suite.testDeleteThenLookup)
	t.Run("DeleteTwice", suite.testDeleteTwice)
	t.Run("UnknownID", suite.testUnknownID)
	t.Run("ConcurrentCreates", suite.testConcurrentCreates)
}

func (suite *RepositoryTestSuite) newRepository(t *testing.T) repository.Repository {
	t.Helper()
	repo := suite.NewRepository(t)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testLocation(name string) uploads.Location {
	return uploads.Location{
		Disk: "default",
		Path: "/uploads/2025/01/02/120000-1-" + name,
		Name: name,
	}
}

func (suite *RepositoryTestSuite) testCreateAndGet(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	loc := testLocation("a.txt")
	id, err := repo.Create(ctx, loc, uploads.Metadata{"context": "test"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetLocation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "test", meta.Context())
}

func (suite *RepositoryTestSuite) testCreateWithoutMeta(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), nil)
	require.NoError(t, err)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func (suite *RepositoryTestSuite) testCreateWithEmptyMeta(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), uploads.Metadata{})
	require.NoError(t, err)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, meta)
	assert.Empty(t, meta)
}

// testNumericMeta checks that numbers keep their value through the store.
// Implementations may hand back a different numeric type than was stored, so
// values are compared in their printed form.
func (suite *RepositoryTestSuite) testNumericMeta(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	stored := uploads.Metadata{
		"count":   3,
		"big":     int64(1<<60 + 1),
		"ratio":   1.5,
		"nested":  map[string]any{"size": int64(9007199254740993)},
		"context": "numbers",
	}
	id, err := repo.Create(ctx, testLocation("a.txt"), stored)
	require.NoError(t, err)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "3", fmt.Sprint(meta["count"]))
	assert.Equal(t, "1152921504606846977", fmt.Sprint(meta["big"]))
	assert.Equal(t, "1.5", fmt.Sprint(meta["ratio"]))
	assert.Equal(t, "numbers", meta.Context())

	nested, ok := meta["nested"].(map[string]any)
	require.True(t, ok, "nested metadata has type %T", meta["nested"])
	assert.Equal(t, "9007199254740993", fmt.Sprint(nested["size"]))
}

func (suite *RepositoryTestSuite) testDistinctIDs(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, testLocation("a.txt"), nil)
	require.NoError(t, err)
	second, err := repo.Create(ctx, testLocation("a.txt"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func (suite *RepositoryTestSuite) testUpdateReplacesMeta(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), uploads.Metadata{"context": "old"})
	require.NoError(t, err)

	moved := testLocation("b.txt")
	moved.Disk = "archive"
	newID, err := repo.Update(ctx, id, moved, uploads.Metadata{"context": "new"})
	require.NoError(t, err)
	assert.Equal(t, id, newID)

	got, err := repo.GetLocation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, moved, got)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", meta.Context())
}

func (suite *RepositoryTestSuite) testUpdateNilMetaKeepsMeta(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), uploads.Metadata{"context": "kept"})
	require.NoError(t, err)

	_, err = repo.Update(ctx, id, testLocation("b.txt"), nil)
	require.NoError(t, err)

	meta, err := repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept", meta.Context())
}

func (suite *RepositoryTestSuite) testUpdateNotFound(t *testing.T) {
	repo := suite.newRepository(t)

	_, err := repo.Update(context.Background(), repository.NewID(), testLocation("a.txt"), nil)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) testDeleteThenLookup(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), nil)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))

	_, err = repo.GetLocation(ctx, id)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)

	_, err = repo.GetMeta(ctx, id)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) testDeleteTwice(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testLocation("a.txt"), nil)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), uploads.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) testUnknownID(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	_, err := repo.GetLocation(ctx, "does-not-exist")
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "does-not-exist"), uploads.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) testConcurrentCreates(t *testing.T) {
	repo := suite.newRepository(t)
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := repo.Create(ctx, testLocation("c.txt"), nil)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		_, err := repo.GetLocation(ctx, id)
		assert.NoError(t, err)
	}
}
