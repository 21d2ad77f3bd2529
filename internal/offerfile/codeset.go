package offerfile

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeSet remembers coupon codes case-insensitively. A bloom filter answers
// the common "never seen" case; maybe-hits are confirmed against the exact
// set.
type CodeSet struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}

	// FalsePositives counts filter hits the exact set rejected.
	FalsePositives int
}

// NewCodeSet sizes the filter for capacity codes at false positive rate fpr.
func NewCodeSet(capacity uint, fpr float64) *CodeSet {
	return &CodeSet{
		filter: bloom.NewWithEstimates(capacity, fpr),
		exact:  make(map[string]struct{}),
	}
}

// NormalizeCode is the form codes are compared in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Add records code and reports whether it was new.
func (s *CodeSet) Add(code string) bool {
	key := NormalizeCode(code)
	if s.filter.TestString(key) {
		if _, ok := s.exact[key]; ok {
			return false
		}
		s.FalsePositives++
	}
	s.filter.AddString(key)
	s.exact[key] = struct{}{}
	return true
}

// Len returns the number of distinct codes.
func (s *CodeSet) Len() int { return len(s.exact) }
