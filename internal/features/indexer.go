package features

import "sort"

// StringIndex assigns each distinct label a dense index: most frequent label
// first, ties in order of first appearance.
type StringIndex struct {
	Labels []string
	index  map[string]int
}

func FitStringIndex(values []string) *StringIndex {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, v := range values {
		if _, ok := firstSeen[v]; !ok {
			firstSeen[v] = i
		}
		counts[v]++
	}
	labels := make([]string, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return &StringIndex{Labels: labels, index: idx}
}

func (s *StringIndex) Len() int { return len(s.Labels) }

func (s *StringIndex) Index(label string) (int, bool) {
	i, ok := s.index[label]
	return i, ok
}

// OneHot writes a full one-hot block for label into dst, which must have Len() slots.
func (s *StringIndex) OneHot(dst []float64, label string) bool {
	i, ok := s.Index(label)
	if !ok {
		return false
	}
	for j := range dst {
		dst[j] = 0
	}
	dst[i] = 1
	return true
}
