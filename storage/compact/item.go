package compact

import (
	"bytes"

	"github.com/skerrydb/skerry/storage/item"
)

// Kind tags the variants of a CompactItem. Deliberately distinct from
// item.ValueType so the merge-side representation can evolve independently of
// the storage envelope.
type Kind uint8

const (
	KindValue Kind = iota
	KindTombstone
	KindWeakTombstone
)

func (me Kind) String() string {
	switch me {
	case KindValue:
		return "V"
	case KindTombstone:
		return "T"
	case KindWeakTombstone:
		return "W"
	default:
		return "?"
	}
}

// CompactItem is the shape merge and compaction algorithms work with: a key
// plus a marker kind, with a value payload carried only by the live-value
// variant. Ordering and equality are defined by the key alone; kind and
// payload never participate, so all mutations of one key form a single
// equivalence group under sorting. Source recency is not part of the element
// either and travels as separate metadata (see Record).
type CompactItem[K, V any] struct {
	Kind  Kind
	Key   K
	Value V
}

func NewValue[K, V any](key K, value V) CompactItem[K, V] {
	return CompactItem[K, V]{Kind: KindValue, Key: key, Value: value}
}

func NewTombstone[K, V any](key K) CompactItem[K, V] {
	return CompactItem[K, V]{Kind: KindTombstone, Key: key}
}

func NewWeakTombstone[K, V any](key K) CompactItem[K, V] {
	return CompactItem[K, V]{Kind: KindWeakTombstone, Key: key}
}

// Compare builds the key-only comparator for a key type; items with equal
// keys compare equal regardless of kind or payload.
func Compare[K, V any](keyComparator func(a, b K) int) func(a, b CompactItem[K, V]) int {
	return func(a, b CompactItem[K, V]) int {
		return keyComparator(a.Key, b.Key)
	}
}

// CompareBytes is Compare instantiated for byte-lexicographic keys.
func CompareBytes(a, b CompactItem[[]byte, []byte]) int {
	return bytes.Compare(a.Key, b.Key)
}

// FromItem projects an envelope item into the merge-side shape, dropping the
// partition; merges are single-partition and reattach it on the way out.
func FromItem(it item.Item) CompactItem[[]byte, []byte] {
	switch it.ValueType {
	case item.Tombstone:
		return NewTombstone[[]byte, []byte](it.Key)
	case item.WeakTombstone:
		return NewWeakTombstone[[]byte, []byte](it.Key)
	default:
		return NewValue(it.Key, it.Value)
	}
}

// ToItem reattaches a partition to produce an envelope item.
func ToItem(ci CompactItem[[]byte, []byte], partition []byte) item.Item {
	out := item.Item{
		Partition: partition,
		Key:       ci.Key,
		ValueType: item.Value,
		Value:     ci.Value,
	}
	switch ci.Kind {
	case KindTombstone:
		out.ValueType = item.Tombstone
		out.Value = nil
	case KindWeakTombstone:
		out.ValueType = item.WeakTombstone
		out.Value = nil
	}
	return out
}
