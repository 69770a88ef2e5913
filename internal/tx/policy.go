package tx

// BucketKey groups transactions for lookups inside a Set.
type BucketKey string

// forcedBucket is the single bucket used under forced collision.
const forcedBucket BucketKey = "*"

// CollisionPolicy decides when two transactions are the same transaction.
//
// ConflictsWith is NOT an equivalence relation: {1,2} conflicts with {2,3}
// and {2,3} with {3,4}, but {1,2} does not conflict with {3,4}. Do not
// replace it with key equality or a plain map lookup.
//
// BucketKey must be consistent with ConflictsWith: two transactions that
// conflict either share a bucket or share a consumed resource.
type CollisionPolicy interface {
	ConflictsWith(a, b *Transaction) bool
	BucketKey(t *Transaction) BucketKey
	String() string
}

var (
	// Normal treats transactions as the same when their resource sets
	// intersect.
	Normal CollisionPolicy = normalPolicy{}

	// ForcedCollision treats every pair of transactions as the same, so any
	// set holds at most one. It simulates an attacker flooding the network
	// with competing spends.
	ForcedCollision CollisionPolicy = forcedPolicy{}
)

// PolicyFor returns ForcedCollision when doubleSpend is set and Normal
// otherwise.
func PolicyFor(doubleSpend bool) CollisionPolicy {
	if doubleSpend {
		return ForcedCollision
	}
	return Normal
}

type normalPolicy struct{}

func (normalPolicy) ConflictsWith(a, b *Transaction) bool { return a.Intersects(b) }
func (normalPolicy) BucketKey(t *Transaction) BucketKey   { return BucketKey(t.key) }
func (normalPolicy) String() string                        { return "normal" }

type forcedPolicy struct{}

func (forcedPolicy) ConflictsWith(a, b *Transaction) bool { return true }
func (forcedPolicy) BucketKey(*Transaction) BucketKey     { return forcedBucket }
func (forcedPolicy) String() string                        { return "forced-collision" }

// SeedUTXOs returns the resources spent by the transaction injected into
// peer under the given mode: a peer specific resource, plus the shared one
// in double-spend mode.
func SeedUTXOs(peer int, doubleSpend bool) []UTXO {
	if doubleSpend {
		return []UTXO{SharedUTXO, UTXO(peer)}
	}
	return []UTXO{UTXO(peer)}
}
