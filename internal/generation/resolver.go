package generation

import (
	"go.uber.org/zap"
)

// ResolveDependencies rewrites index based dependencies into persisted
// subtask IDs. ids[i] is the ID assigned to the i-th subtask of the batch
// and refs[i] its raw dependency values. Values that are not integers in
// [0, n), point at the subtask itself, or would close a cycle are dropped
// and logged; they never fail the batch.
func ResolveDependencies(ids []uint64, refs [][]any, logger *zap.Logger) [][]uint64 {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := len(ids)
	resolved := make([][]uint64, n)
	edges := make([][]int, n)

	for i := 0; i < n; i++ {
		resolved[i] = []uint64{}
		if i >= len(refs) {
			continue
		}
		seen := make(map[int]struct{})
		for _, ref := range refs[i] {
			idx, ok := asIndex(ref)
			switch {
			case !ok || idx < 0 || idx >= n:
				logger.Warn("dropping dependency outside task set",
					zap.Int("task_index", i), zap.Any("value", ref), zap.Int("task_count", n))
				continue
			case idx == i:
				logger.Warn("dropping self dependency", zap.Int("task_index", i))
				continue
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			if reachable(edges, idx, i) {
				logger.Warn("dropping dependency that would create a cycle",
					zap.Int("task_index", i), zap.Int("depends_on", idx))
				continue
			}
			seen[idx] = struct{}{}
			edges[i] = append(edges[i], idx)
			resolved[i] = append(resolved[i], ids[idx])
		}
	}
	return resolved
}

// reachable reports whether to can be reached from from by following
// depends-on edges.
func reachable(edges [][]int, from, to int) bool {
	visited := make([]bool, len(edges))
	stack := []int{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, edges[cur]...)
	}
	return false
}
