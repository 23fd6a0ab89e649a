package ltt

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies Prefetch's errgroup fan-out (Cache.Prefetch) never
// leaves a goroutine running past the call that spawned it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
