package engage

// Breaker is per account+platform circuit state. Owned by the Executor and
// scoped to its lifetime; there is no package-level registry.
type Breaker struct {
	consecutiveFailures int
	open                bool
}

// Opens after this many consecutive post failures.
const breakerThreshold = 3

func (b *Breaker) Open() bool { return b.open }

func (b *Breaker) RecordFailure() {
	b.consecutiveFailures++
	if b.consecutiveFailures >= breakerThreshold {
		b.open = true
	}
}

func (b *Breaker) RecordSuccess() {
	b.consecutiveFailures = 0
}
