// Package tx models broadcast transactions as sets of consumed resources
// (UTXOs). Identity is collision based: two transactions that spend any
// common resource are the same transaction for relay bookkeeping, which is
// how a double spend looks to a peer that already holds one of the spends.
package tx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// UTXO identifies a spendable resource.
type UTXO int64

// SharedUTXO is the resource every seeded transaction spends in double-spend
// mode, so that all of them conflict with one another.
const SharedUTXO UTXO = -1

// Transaction is an immutable set of consumed resources plus metadata that
// the simulation uses for attribution.
type Transaction struct {
	utxos mapset.Set[UTXO]
	key   string
	meta  any
}

// New returns a transaction spending the given resources. Duplicate
// resources collapse; order does not matter.
func New(utxos []UTXO, meta any) *Transaction {
	set := mapset.NewThreadUnsafeSet[UTXO](utxos...)
	return &Transaction{
		utxos: set,
		key:   frozenKey(set),
		meta:  meta,
	}
}

// frozenKey renders the resource set as an order independent string.
func frozenKey(set mapset.Set[UTXO]) string {
	ids := set.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return b.String()
}

// Meta returns the metadata given at construction.
func (t *Transaction) Meta() any { return t.meta }

// UTXOs returns the consumed resources in ascending order.
func (t *Transaction) UTXOs() []UTXO {
	ids := t.utxos.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Spends reports whether t consumes u.
func (t *Transaction) Spends(u UTXO) bool { return t.utxos.Contains(u) }

// Intersects reports whether t and o consume at least one common resource.
func (t *Transaction) Intersects(o *Transaction) bool {
	small, large := t.utxos, o.utxos
	if small.Cardinality() > large.Cardinality() {
		small, large = large, small
	}
	hit := false
	small.Each(func(u UTXO) bool {
		hit = large.Contains(u)
		return hit
	})
	return hit
}

// MaxUTXO returns the largest consumed resource. ok is false for a
// transaction that spends nothing.
func (t *Transaction) MaxUTXO() (top UTXO, ok bool) {
	t.utxos.Each(func(u UTXO) bool {
		if !ok || u > top {
			top = u
			ok = true
		}
		return false
	})
	return top, ok
}

func (t *Transaction) String() string {
	return fmt.Sprintf("tx{%s meta=%v}", t.key, t.meta)
}
