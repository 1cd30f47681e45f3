package utils

import (
	"context"
	"fmt"
	"sync"
)

// ParallelExecute 并行执行多个操作
//
// 对一组输入并发执行操作函数，限制并发数量；结果顺序与输入一致。
//
// 示例：
//
//	reads := []func(ctx context.Context) error{refreshAllowance, refreshHasJoined}
//	_, err := ParallelExecute(ctx, reads, func(ctx context.Context, fn func(context.Context) error) (struct{}, error) {
//	    return struct{}{}, fn(ctx)
//	}, 3)
func ParallelExecute[T any, R any](
	ctx context.Context,
	items []T,
	executeFn func(ctx context.Context, item T) (R, error),
	concurrency int,
) ([]R, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]R, len(items))
	errors := make([]error, len(items))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, item := range items {
		wg.Add(1)
		go func(index int, batchItem T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errors[index] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			result, err := executeFn(ctx, batchItem)
			if err != nil {
				errors[index] = err
			} else {
				results[index] = result
			}
		}(i, item)
	}

	wg.Wait()

	for i, err := range errors {
		if err != nil {
			return nil, fmt.Errorf("parallel execute failed at item %d: %w", i, err)
		}
	}

	return results, nil
}
