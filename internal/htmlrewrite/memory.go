package htmlrewrite

import (
	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

// memoryLimiter tracks bytes held by the rewriter itself. The tokenizer's
// token buffer is bounded separately with whatever the limiter has left.
type memoryLimiter struct {
	limit int
	used  int
}

func (m *memoryLimiter) available() int {
	return m.limit - m.used
}

func (m *memoryLimiter) reserve(n int) error {
	if m.used+n > m.limit {
		return memoryLimitExceeded(m.limit, nil)
	}
	m.used += n
	return nil
}

func (m *memoryLimiter) release(n int) {
	m.used -= n
	if m.used < 0 {
		m.used = 0
	}
}

func memoryLimitExceeded(limit int, cause error) error {
	return derrors.MemoryLimitError("memory limit exceeded").
		WithCause(cause).
		WithContext("limit", limit).
		Build()
}
