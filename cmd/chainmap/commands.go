package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llxisdsh/chainmap"
)

func scenarioCommand() *cobra.Command {
	var keys int
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Insert keys, update one, then remove them all while checking sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, logger, err := openTable(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer t.Destroy()
			return runScenario(cmd.OutOrStdout(), t, keys)
		},
	}
	cmd.Flags().IntVar(&keys, "keys", 34, "number of integer keys")
	return cmd
}

func statsCommand() *cobra.Command {
	var keys int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Insert keys and print table statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, logger, err := openTable(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer t.Destroy()
			for i := 0; i < keys; i++ {
				if err := t.Insert(i, i); err != nil {
					return errors.Wrapf(err, "insert key %d", i)
				}
			}
			_, err = io.WriteString(cmd.OutOrStdout(), t.Stats().ToString())
			return err
		},
	}
	cmd.Flags().IntVar(&keys, "keys", 1000, "number of integer keys")
	return cmd
}

func openTable(cmd *cobra.Command) (*chainmap.HashTable[int, int], *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := chainmap.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	opts := append(cfg.Options(), chainmap.WithLogger(logger))
	t, err := chainmap.New[int, int](chainmap.IntHasher[int](), chainmap.Equal[int], opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("table ready",
		zap.Int("buckets", t.BucketCount()),
		zap.Float64("maxLoadFactor", cfg.LoadFactor))
	return t, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(chainmap.ErrInvalidConfig, "log-level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// runScenario inserts 0..n-1, updates key 5 and removes every key again,
// checking the size after each step.
func runScenario(w io.Writer, t *chainmap.HashTable[int, int], n int) error {
	for i := 0; i < n; i++ {
		if err := t.Insert(i, i); err != nil {
			return errors.Wrapf(err, "insert key %d", i)
		}
	}
	if t.Size() != n {
		return errors.Newf("size %d after %d inserts", t.Size(), n)
	}
	fmt.Fprintf(w, "inserted %d keys into %d buckets (load factor %.3f)\n",
		n, t.BucketCount(), t.LoadFactor())

	if n > 5 {
		if err := t.Insert(5, 500); err != nil {
			return errors.Wrap(err, "update key 5")
		}
		if v, ok := t.Get(5); !ok || v != 500 || t.Size() != n {
			return errors.Newf("update of key 5 gave (%d, %v), size %d", v, ok, t.Size())
		}
		fmt.Fprintln(w, "updated key 5 to 500")
	}

	for i := n - 1; i >= 0; i-- {
		t.Remove(i)
		if t.Size() != i {
			return errors.Newf("size %d after removing key %d", t.Size(), i)
		}
	}
	fmt.Fprintf(w, "removed all keys, size %d, buckets %d\n", t.Size(), t.BucketCount())
	return nil
}
