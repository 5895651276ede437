package testing

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/marmos91/dittouploads/pkg/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// mustWrite writes content and fails the test if it errors.
func mustWrite(t *testing.T, d disk.Disk, path string, data []byte) {
	t.Helper()
	err := d.Write(testContext(), path, bytes.NewReader(data))
	require.NoError(t, err, "Write should succeed")
}

// mustRead reads content and fails the test if it errors.
func mustRead(t *testing.T, d disk.Disk, path string) []byte {
	t.Helper()
	data, err := d.Read(testContext(), path)
	require.NoError(t, err, "Read should succeed")
	return data
}

// mustStream reads content through OpenReader and fails the test if it errors.
func mustStream(t *testing.T, d disk.Disk, path string) []byte {
	t.Helper()
	reader, err := d.OpenReader(testContext(), path)
	require.NoError(t, err, "OpenReader should succeed")
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "Reading stream should succeed")
	return data
}

// mustDelete deletes content and fails the test if it errors.
func mustDelete(t *testing.T, d disk.Disk, path string) {
	t.Helper()
	err := d.Delete(testContext(), path)
	require.NoError(t, err, "Delete should succeed")
}

// assertMissing checks that nothing is readable at path.
func assertMissing(t *testing.T, d disk.Disk, path string) {
	t.Helper()
	_, err := d.Read(testContext(), path)
	AssertErrorIs(t, disk.ErrFileNotFound, err)
}

// assertContentEquals checks if content matches expected data.
func assertContentEquals(t *testing.T, d disk.Disk, path string, expected []byte) {
	t.Helper()
	actual := mustRead(t, d, path)
	assert.Equal(t, expected, actual, "Content data mismatch")
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(i % 256)
	}
	return data
}

// generateTestPath generates a unique test path.
func generateTestPath(name string) string {
	return "/test/2025/01/02/" + name
}
