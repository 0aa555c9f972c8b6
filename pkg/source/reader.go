package source

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// ReadFiles reads the given paths concurrently and returns them in the same
// order. The first read error cancels the rest.
func ReadFiles(ctx context.Context, paths []string) ([]File, error) {
	files := make([]File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			files[i] = File{Name: path, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
