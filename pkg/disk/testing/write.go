package testing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// RunWriteTests executes all Disk write tests.
func (suite *DiskTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Write_NestedPath", suite.testWriteNestedPath)
	t.Run("Write_LargeContent", suite.testWriteLarge)
	t.Run("Write_ReaderError", suite.testWriteReaderError)
	t.Run("Write_Concurrent", suite.testWriteConcurrent)
}

func (suite *DiskTestSuite) testWriteOverwrite(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("overwrite.txt")

	mustWrite(t, d, path, []byte("first version, longer"))
	mustWrite(t, d, path, []byte("second"))

	assertContentEquals(t, d, path, []byte("second"))
}

func (suite *DiskTestSuite) testWriteNestedPath(t *testing.T) {
	d := suite.NewDisk()
	path := "/uploads/2025/12/31/235959-42-deep.txt"

	mustWrite(t, d, path, []byte("nested"))

	assertContentEquals(t, d, path, []byte("nested"))
}

func (suite *DiskTestSuite) testWriteLarge(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("large.bin")
	// 8MB test data
	testData := generateTestData(8 * 1024 * 1024)

	mustWrite(t, d, path, testData)

	assertContentEquals(t, d, path, testData)
}

// failingReader yields some bytes and then fails.
type failingReader struct {
	sent bool
}

var errReaderBroken = errors.New("reader broken")

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errReaderBroken
}

func (suite *DiskTestSuite) testWriteReaderError(t *testing.T) {
	d := suite.NewDisk()
	path := generateTestPath("broken.txt")

	err := d.Write(testContext(), path, &failingReader{})

	AssertErrorIs(t, errReaderBroken, err)
}

func (suite *DiskTestSuite) testWriteConcurrent(t *testing.T) {
	d := suite.NewDisk()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := generateTestPath(fmt.Sprintf("concurrent-%d.txt", i))
			if err := d.Write(testContext(), path, strings.NewReader(fmt.Sprintf("payload-%d", i))); err != nil {
				t.Errorf("concurrent write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		path := generateTestPath(fmt.Sprintf("concurrent-%d.txt", i))
		assert.Equal(t, fmt.Sprintf("payload-%d", i), string(mustRead(t, d, path)))
	}
}
