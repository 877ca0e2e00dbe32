package jshell

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// CheckResult is the compile outcome of one file.
type CheckResult struct {
	Path   string
	Status Status
	Err    error
}

// CheckFiles compiles every path without running it, using up to workers
// engines of engineType in parallel. Results follow the order of paths.
func CheckFiles(ctx context.Context, fs afero.Fs, engineType string, paths []string, workers int) ([]CheckResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := InitEnginePool(engineType)
	defer pool.Shutdown()

	results := make([]CheckResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := pool.Get()
			if err != nil {
				return err
			}
			defer pool.Put(e)
			results[i] = checkFile(e, fs, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("jshell: check: %w", err)
	}
	return results, nil
}

func checkFile(e Engine, fs afero.Fs, path string) CheckResult {
	src, err := afero.ReadFile(fs, path)
	if errors.Is(err, iofs.ErrNotExist) {
		return CheckResult{Path: path, Status: StatusFileNotFound, Err: err}
	}
	if err != nil {
		return CheckResult{Path: path, Status: StatusRuntimeError, Err: err}
	}
	if _, err := e.Compile(path, src); err != nil {
		return CheckResult{Path: path, Status: StatusCompileError, Err: err}
	}
	return CheckResult{Path: path, Status: StatusSuccess}
}
