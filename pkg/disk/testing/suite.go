package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittouploads/pkg/disk"
)

// DiskTestSuite is a comprehensive test suite for disk.Disk implementations.
// It tests the interface contract, not implementation details, making it reusable
// across different implementations (memory, filesystem, S3, etc.).
//
// Usage:
//
//	func TestMyDisk(t *testing.T) {
//	    suite := &testing.DiskTestSuite{
//	        NewDisk: func() disk.Disk {
//	            return mydisk.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type DiskTestSuite struct {
	// NewDisk is a factory function that creates a fresh Disk instance
	// for each test. This ensures test isolation.
	NewDisk func() disk.Disk
}

// Run executes all tests in the suite.
func (suite *DiskTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
