package app

import (
	"os"
	"testing"

	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/testutil"
)

// SetupAppTest validates cfg and creates an App whose resolved output and
// logs are captured in the returned buffers. Set PKGRESOLVE_TEST_LOGS=true to
// dump the logs when the test finishes.
func SetupAppTest(t *testing.T, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	testApp := NewApp(out, logs, validated, modules...)

	t.Cleanup(func() {
		if os.Getenv("PKGRESOLVE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return testApp, out, logs
}
