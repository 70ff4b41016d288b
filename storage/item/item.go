package item

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/skerrydb/skerry/util"
)

const (
	// Bounds imposed by the storage envelope: partition and key sizes must fit
	// their length prefixes, values are capped by the 4-byte prefix.
	MaxPartitionSize = math.MaxUint8
	MaxKeySize       = math.MaxUint16
	MaxValueSize     = math.MaxUint32

	// Default cap on value sizes; callers raise it through Limits, up to
	// MaxValueSize.
	DefaultMaxValueSize = 65_535
)

var (
	ErrEmptyPartition   = errors.New("partition name is empty")
	ErrEmptyKey         = errors.New("key is empty")
	ErrPartitionTooLong = errors.New("partition name is too long")
	ErrKeyTooLong       = errors.New("key is too long")
	ErrValueTooLong     = errors.New("value is too long")
	ErrInvalidValueType = errors.New("invalid value type")
)

// ValueType distinguishes live values from the two kinds of delete marker.
// The numeric values are part of the storage envelope and must not change.
type ValueType uint8

const (
	// Value marks a live user value.
	Value ValueType = 0
	// Tombstone marks a deletion that suppresses every older version of the
	// key.
	Tombstone ValueType = 1
	// WeakTombstone marks a single delete: it suppresses only the most recent
	// older version, letting versions beneath it resurface.
	WeakTombstone ValueType = 2
)

func (me ValueType) IsTombstone() bool {
	return me == Tombstone || me == WeakTombstone
}

func (me ValueType) IsValid() bool {
	return me <= WeakTombstone
}

// String is the single-letter marker used in diagnostic renderings.
func (me ValueType) String() string {
	switch me {
	case Value:
		return "V"
	case Tombstone:
		return "T"
	case WeakTombstone:
		return "W"
	default:
		return "?"
	}
}

// Limits carries construction-time bounds that are policy rather than
// envelope; the envelope itself always permits values up to MaxValueSize.
type Limits struct {
	// Largest permitted value size in bytes. Defaults to DefaultMaxValueSize
	// and is clamped to MaxValueSize.
	MaxValueSize util.Optional[uint64]
}

func (me Limits) maxValueSize() uint64 {
	return min(me.MaxValueSize.Or(DefaultMaxValueSize), MaxValueSize)
}

// Item is a single mutation of a keyspace: a value write or a delete marker,
// addressed to a partition and a user key. An item is constructed once,
// validated against the envelope, and never mutated afterwards; it takes
// ownership of the byte slices it is given.
type Item struct {
	Partition []byte
	Key       []byte
	Value     []byte
	ValueType ValueType
}

// New validates unvalidated input against the envelope and the configured
// limits. Delete markers may carry a value here; the envelope drops it at
// serialization time.
func New(partition, key, value []byte, valueType ValueType, limits Limits) (out Item, _ error) {
	if err := validate(partition, key, value, valueType, limits); err != nil {
		return out, err
	}

	return Item{
		Partition: partition,
		Key:       key,
		Value:     value,
		ValueType: valueType,
	}, nil
}

// Must is the contract tier of New: inputs are supposed to be valid already,
// so a violation is a bug in the caller and panics. Values are checked
// against the envelope ceiling rather than the configurable limit.
func Must(partition, key, value []byte, valueType ValueType) Item {
	out, err := New(partition, key, value, valueType, Limits{
		MaxValueSize: util.Some(uint64(MaxValueSize)),
	})
	util.AssertNoError(err)
	return out
}

// CheckPartition reports whether partition is a usable partition name under
// the envelope bounds.
func CheckPartition(partition []byte) error {
	if len(partition) == 0 {
		return ErrEmptyPartition
	}
	if len(partition) > MaxPartitionSize {
		return errors.Wrapf(ErrPartitionTooLong, "%d bytes > %d", len(partition), MaxPartitionSize)
	}
	return nil
}

// CheckKey reports whether key is a usable user key under the envelope
// bounds.
func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > MaxKeySize {
		return errors.Wrapf(ErrKeyTooLong, "%d bytes > %d", len(key), MaxKeySize)
	}
	return nil
}

func validate(partition, key, value []byte, valueType ValueType, limits Limits) error {
	if err := CheckPartition(partition); err != nil {
		return err
	}
	if err := CheckKey(key); err != nil {
		return err
	}
	if maxValueSize := limits.maxValueSize(); uint64(len(value)) > maxValueSize {
		return errors.Wrapf(ErrValueTooLong, "%d bytes > %d", len(value), maxValueSize)
	}
	if !valueType.IsValid() {
		return errors.Wrapf(ErrInvalidValueType, "%d", uint8(valueType))
	}
	return nil
}

// EncodedSize is the size of the item's envelope frame in bytes.
func (me Item) EncodedSize() uint64 {
	stored := me.ToStoredItem()
	return stored.SizeOf()
}

// String renders "<partition>:<key>:<marker> => <value>"; the weak-tombstone
// marker is distinct from the hard one.
func (me Item) String() string {
	return fmt.Sprintf("%s:%q:%s => %q", me.Partition, me.Key, me.ValueType, me.Value)
}
