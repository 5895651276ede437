package testing

import (
	"testing"

	"github.com/marmos91/dittouploads/pkg/disk"
	"github.com/stretchr/testify/assert"
)

// RunBasicTests executes all basic Disk read and delete tests.
func (suite *DiskTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Name_NotEmpty", suite.testNameNotEmpty)
	t.Run("Read_NotFound", suite.testReadNotFound)
	t.Run("OpenReader_NotFound", suite.testOpenReaderNotFound)
	t.Run("Read_Success", suite.testReadSuccess)
	t.Run("OpenReader_Success", suite.testOpenReaderSuccess)
	t.Run("Read_EmptyContent", suite.testReadEmpty)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
}

func (suite *DiskTestSuite) testNameNotEmpty(t *testing.T) {
	d := suite.NewDisk()
	assert.NotEmpty(t, d.Name())
}

// ============================================================================
// Read Tests
// ============================================================================

func (suite *DiskTestSuite) testReadNotFound(t *testing.T) {
	d := suite.NewDisk()

	_, err := d.Read(testContext(), generateTestPath("nonexistent"))
	AssertErrorIs(t, disk.ErrFileNotFound, err)
}

func (suite *DiskTestSuite) testOpenReaderNotFound(t *testing.T) {
	d := suite.NewDisk()

	_, err := d.OpenReader(testContext(), generateTestPath("nonexistent-stream"))
	AssertErrorIs(t, disk.ErrFileNotFound, err)
}

func (suite *DiskTestSuite) testReadSuccess(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("read-success.txt")
	testData := []byte("Hello, World!")

	mustWrite(t, d, path, testData)

	assertContentEquals(t, d, path, testData)
}

func (suite *DiskTestSuite) testOpenReaderSuccess(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("stream-success.bin")
	testData := generateTestData(256 * 1024)

	mustWrite(t, d, path, testData)

	assert.Equal(t, testData, mustStream(t, d, path))
}

func (suite *DiskTestSuite) testReadEmpty(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("empty")

	mustWrite(t, d, path, []byte{})

	data := mustRead(t, d, path)
	assert.Equal(t, 0, len(data))
}

// ============================================================================
// Delete Tests
// ============================================================================

func (suite *DiskTestSuite) testDeleteSuccess(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("delete-me.txt")

	mustWrite(t, d, path, []byte("bye"))
	mustDelete(t, d, path)

	assertMissing(t, d, path)
}

func (suite *DiskTestSuite) testDeleteIdempotent(t *testing.T) {
	d := suite.NewDisk()

	mustDelete(t, d, generateTestPath("never-written"))
}
