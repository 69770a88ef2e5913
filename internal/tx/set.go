package tx

// Set is a collision-aware set of transactions. Membership means "some
// member conflicts with this transaction" under the set's policy, so adding
// a transaction that conflicts with a member is a no-op. Sets only grow.
//
// Members are indexed by bucket and by consumed resource; every candidate
// found that way is confirmed with ConflictsWith.
type Set struct {
	policy     CollisionPolicy
	members    []*Transaction
	buckets    map[BucketKey][]int
	byResource map[UTXO][]int
}

// NewSet returns an empty set governed by policy.
func NewSet(policy CollisionPolicy) *Set {
	return &Set{
		policy:     policy,
		buckets:    make(map[BucketKey][]int),
		byResource: make(map[UTXO][]int),
	}
}

// Policy returns the collision policy of the set.
func (s *Set) Policy() CollisionPolicy { return s.policy }

// Len returns the number of stored representatives.
func (s *Set) Len() int { return len(s.members) }

// Members returns the stored transactions in insertion order. The slice must
// not be modified.
func (s *Set) Members() []*Transaction { return s.members }

// Conflicts reports whether any member conflicts with t.
func (s *Set) Conflicts(t *Transaction) bool {
	for _, i := range s.buckets[s.policy.BucketKey(t)] {
		if s.policy.ConflictsWith(s.members[i], t) {
			return true
		}
	}
	hit := false
	t.utxos.Each(func(u UTXO) bool {
		for _, i := range s.byResource[u] {
			if s.policy.ConflictsWith(s.members[i], t) {
				hit = true
				break
			}
		}
		return hit
	})
	return hit
}

// Add inserts t unless a member conflicts with it. It reports whether t was
// newly inserted.
func (s *Set) Add(t *Transaction) bool {
	if s.Conflicts(t) {
		return false
	}
	idx := len(s.members)
	s.members = append(s.members, t)
	key := s.policy.BucketKey(t)
	s.buckets[key] = append(s.buckets[key], idx)
	t.utxos.Each(func(u UTXO) bool {
		s.byResource[u] = append(s.byResource[u], idx)
		return false
	})
	return true
}

// AddAll inserts each transaction in order and returns how many were new.
func (s *Set) AddAll(txs []*Transaction) int {
	added := 0
	for _, t := range txs {
		if s.Add(t) {
			added++
		}
	}
	return added
}

// Difference returns the members of s that conflict with no member of
// other, in insertion order.
func (s *Set) Difference(other *Set) []*Transaction {
	var out []*Transaction
	for _, t := range s.members {
		if !other.Conflicts(t) {
			out = append(out, t)
		}
	}
	return out
}
