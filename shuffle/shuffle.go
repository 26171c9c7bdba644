// Package shuffle randomizes test order at suite, module, or module-order
// granularity using a seeded pseudo-random generator.
package shuffle

import (
	"math"
	"math/rand"
	"time"

	"github.com/perfgo/brightest/model"
)

// MaxSeed is the largest seed GenerateSeed returns.
const MaxSeed = math.MaxInt32

// GenerateSeed returns a random seed in [1, MaxSeed].
func GenerateSeed() int64 {
	return 1 + rand.Int63n(MaxSeed)
}

// GroupKey extracts the grouping key of an item.
type GroupKey func(model.TestItem) string

// ByModule groups items by their module path.
func ByModule(item model.TestItem) string {
	return item.ModulePath()
}

// Shuffler permutes test items. Output is reproducible for a fixed seed and
// input order within this implementation only.
type Shuffler struct {
	seed *int64
	rng  *rand.Rand
}

// New creates a Shuffler. A nil seed uses a time based, non-reproducible source.
func New(seed *int64) *Shuffler {
	s := &Shuffler{}
	s.SetSeed(seed)
	return s
}

// Seed returns the configured seed, nil when unseeded.
func (s *Shuffler) Seed() *int64 {
	return s.seed
}

// SetSeed replaces the seed and resets the generator.
func (s *Shuffler) SetSeed(seed *int64) {
	s.seed = seed
	src := time.Now().UnixNano()
	if seed != nil {
		src = *seed
	}
	s.rng = rand.New(rand.NewSource(src))
}

// ShuffleWhole permutes the whole sequence in place.
func (s *Shuffler) ShuffleWhole(items []model.TestItem) {
	if len(items) == 0 {
		return
	}
	s.Permute(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Permute performs a uniform random permutation of n elements through swap.
func (s *Shuffler) Permute(n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}
	s.rng.Shuffle(n, swap)
}

// ShuffleWithinGroups shuffles the members of each group independently while
// keeping groups in first-seen order.
func (s *Shuffler) ShuffleWithinGroups(items []model.TestItem, key GroupKey) {
	if len(items) == 0 {
		return
	}
	order, groups := Partition(items, key)
	reordered := make([]model.TestItem, 0, len(items))
	for _, k := range order {
		members := groups[k]
		s.ShuffleWhole(members)
		reordered = append(reordered, members...)
	}
	copy(items, reordered)
}

// ShuffleGroupOrder shuffles the order of groups while keeping the order of
// items inside each group.
func (s *Shuffler) ShuffleGroupOrder(items []model.TestItem, key GroupKey) {
	if len(items) == 0 {
		return
	}
	order, groups := Partition(items, key)
	s.Permute(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	reordered := make([]model.TestItem, 0, len(items))
	for _, k := range order {
		reordered = append(reordered, groups[k]...)
	}
	copy(items, reordered)
}

// Shuffle applies the permutation matching focus: the whole suite, tests
// within each module, or the order of modules.
func (s *Shuffler) Shuffle(items []model.TestItem, focus model.Focus) bool {
	switch focus {
	case model.FocusTestsWithinSuite:
		s.ShuffleWhole(items)
	case model.FocusTestsWithinModule:
		s.ShuffleWithinGroups(items, ByModule)
	case model.FocusModulesWithinSuite:
		s.ShuffleGroupOrder(items, ByModule)
	default:
		return false
	}
	return true
}

// Partition splits items into groups by key. It returns the keys in first-seen
// order and fresh slices holding each group's members in encounter order.
func Partition(items []model.TestItem, key GroupKey) ([]string, map[string][]model.TestItem) {
	var order []string
	groups := make(map[string][]model.TestItem)
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return order, groups
}
