package tasks

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrNoCacheTarget = errors.New("one of all, key or pattern is required")

type ClearOptions struct {
	All     bool
	Key     string
	Pattern string
}

// ClearCache drops the whole cache, a single key or every key matching a glob pattern.
func (r *Runner) ClearCache(ctx context.Context, opts ClearOptions) (int64, error) {
	switch {
	case opts.All:
		if err := r.cache.Clear(ctx); err != nil {
			return 0, err
		}
		r.logger.Info("cache cleared")
		return 0, nil
	case opts.Key != "":
		n, err := r.cache.Delete(ctx, opts.Key)
		if err != nil {
			return 0, err
		}
		r.logger.Info("cache key deleted", zap.String("key", opts.Key), zap.Int64("deleted", n))
		return n, nil
	case opts.Pattern != "":
		n, err := r.cache.DeletePattern(ctx, opts.Pattern)
		if err != nil {
			return 0, err
		}
		r.logger.Info("cache keys deleted", zap.String("pattern", opts.Pattern), zap.Int64("deleted", n))
		return n, nil
	}
	return 0, ErrNoCacheTarget
}
