package relay

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the relay
// package. The relay must never leave a detached save goroutine behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
