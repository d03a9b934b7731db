package flow

import (
	"sort"
	"strings"
	"sync"

	"flowbridge/internal/config"
)

// HealthTracker records roots whose worker crashed. A blacklisted root stays
// blacklisted for the lifetime of the tracker.
type HealthTracker struct {
	mu          sync.RWMutex
	blacklisted map[string]struct{}
}

// NewHealthTracker creates an empty tracker
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{blacklisted: make(map[string]struct{})}
}

// IsBlacklisted reports whether root has produced a crash
func (t *HealthTracker) IsBlacklisted(root string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.blacklisted[root]
	return ok
}

// MarkCrashed blacklists root. It returns true only for the first mark.
func (t *HealthTracker) MarkCrashed(root string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.blacklisted[root]; ok {
		return false
	}
	t.blacklisted[root] = struct{}{}
	return true
}

// Blacklisted returns the blacklisted roots in sorted order
func (t *HealthTracker) Blacklisted() []string {
	t.mu.RLock()
	roots := make([]string, 0, len(t.blacklisted))
	for root := range t.blacklisted {
		roots = append(roots, root)
	}
	t.mu.RUnlock()
	sort.Strings(roots)
	return roots
}

// CrashClassifier decides whether a worker exit is a crash
type CrashClassifier struct {
	signatures []config.CrashSignature
}

// NewCrashClassifier builds a classifier from configured signatures
func NewCrashClassifier(signatures []config.CrashSignature) *CrashClassifier {
	sigs := make([]config.CrashSignature, len(signatures))
	for i, s := range signatures {
		sigs[i] = config.CrashSignature{ExitCode: s.ExitCode, Signal: strings.ToUpper(s.Signal)}
	}
	return &CrashClassifier{signatures: sigs}
}

// IsCrash reports whether status matches one of the signatures exactly
func (c *CrashClassifier) IsCrash(status ExitStatus) bool {
	signal := strings.ToUpper(status.Signal)
	for _, s := range c.signatures {
		if s.ExitCode == status.Code && s.Signal == signal {
			return true
		}
	}
	return false
}
