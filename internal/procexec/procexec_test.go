// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package procexec

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is re-executed by the tests below as a stand-in for an
// external tool. It is a no-op when run as part of the normal test suite.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("PROCEXEC_HELPER_MODE") {
	case "sleep":
		time.Sleep(5 * time.Second)
	case "fail":
		fmt.Fprint(os.Stderr, "boom")
		os.Exit(3)
	default:
		fmt.Fprint(os.Stdout, "ok")
	}
	os.Exit(0)
}

func helperCommand(t *testing.T, mode string, timeout time.Duration) Command {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("PROCEXEC_HELPER_MODE", mode)
	return Command{
		Name:    os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess"},
		Timeout: timeout,
	}
}

func TestOSRun(t *testing.T) {
	t.Run("success returns output", func(t *testing.T) {
		out, err := OS{}.Run(context.Background(), helperCommand(t, "ok", 10*time.Second))
		require.NoError(t, err)
		assert.Contains(t, string(out), "ok")
	})

	t.Run("non-zero exit is an error with output", func(t *testing.T) {
		out, err := OS{}.Run(context.Background(), helperCommand(t, "fail", 10*time.Second))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTimeout)
		assert.Contains(t, string(out), "boom")
	})

	t.Run("timeout is reported distinctly", func(t *testing.T) {
		_, err := OS{}.Run(context.Background(), helperCommand(t, "sleep", 100*time.Millisecond))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestOSLookPathMissing(t *testing.T) {
	_, err := OS{}.LookPath("clearly-not-present-binary-signage")
	assert.Error(t, err)
}
