package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCLI(t *testing.T) {
	t.Setenv("HFEM_LINEAR_SOLVER", "")
	t.Setenv("HFEM_MAX_NODES", "")
	missing := filepath.Join(t.TempDir(), "none.yaml")

	t.Run("run", func(t *testing.T) {
		out, err := execute(t, "run", "--config", missing, "--max-nodes", "9", "--elements", "--samples", "4")
		require.NoError(t, err)
		require.Contains(t, out, "capped")
		require.Contains(t, out, "# nodes=9 ")
		var rows int
		for _, line := range strings.Split(out, "\n") {
			if strings.Count(line, "\t") == 5 {
				rows++
			}
		}
		require.Equal(t, 8, rows)
		tail := out[strings.Index(out, "# nodes="):]
		require.Len(t, strings.Split(strings.TrimSpace(tail), "\n"), 6)
	})

	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "problem.yaml")
		data := "domain:\n  nodes: 5\nrefinement:\n  policy: gated\n  threshold: 1e9\nsolver:\n  linear: cg\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		out, err := execute(t, "run", "--config", path, "--samples", "0", "--elements=false")
		require.NoError(t, err)
		require.Contains(t, out, "converged after 1 steps")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := execute(t, "run", "--config", missing, "--solver", "qr")
		require.Error(t, err)
		solver = "lu"
	})

	t.Run("shapes", func(t *testing.T) {
		out, err := execute(t, "shapes", "1", "--config", missing, "--nodes", "3")
		require.NoError(t, err)
		require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 130)

		_, err = execute(t, "shapes", "7", "--config", missing)
		require.Error(t, err)
	})

	t.Run("watch-first-failure", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		defer func(orig func(zap.Config) (*zap.Logger, error)) { newLogger = orig }(newLogger)
		newLogger = func(zap.Config) (*zap.Logger, error) { return zap.New(core), nil }
		defer func() { watch = false }()
		defer rootCmd.SetContext(context.Background())

		// zero load makes the first run fail, watching goes on regardless
		path := filepath.Join(t.TempDir(), "problem.yaml")
		require.NoError(t, os.WriteFile(path, []byte("coefficients:\n  f: \"0\"\n  target: 0\n"), 0644))

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs([]string{"run", "--config", path, "--watch"})
		require.NoError(t, rootCmd.ExecuteContext(ctx))

		failed := logs.FilterMessage("run failed").All()
		require.Len(t, failed, 1)
		require.Contains(t, failed[0].ContextMap()["error"], "degenerate")
		require.Equal(t, 1, logs.FilterMessage("watching problem file").Len())
	})

	t.Run("stiffness", func(t *testing.T) {
		out, err := execute(t, "stiffness", "--config", missing)
		require.NoError(t, err)
		require.Contains(t, out, "primal stiffness")
		require.Contains(t, out, "dual force")
	})
}
