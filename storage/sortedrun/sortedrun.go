package sortedrun

import (
	"bytes"
	"iter"
	"log"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skerrydb/skerry/storage/item"
	"github.com/skerrydb/skerry/util"
)

var (
	ErrOutOfOrderAppend = errors.New("out of order entry append attempt")
	ErrWrongPartition   = errors.New("entry belongs to a different partition")
)

// Run is a key-sorted, key-unique sequence of items from a single partition,
// identified by a random ID and stamped with a recency sequence number;
// higher sequence numbers are newer. A run is immutable once built. Both
// invariants are enforced by the builder, so every consumer can binary-search
// and merge without re-validating.
type Run struct {
	id        [16]byte
	partition []byte
	seq       uint64
	entries   []item.Item
}

type NewArgs struct {
	Partition []byte
	Seq       uint64
	Entries   []item.Item
}

// New builds a run from entries that are already sorted by key.
func New(args NewArgs) (out Run, _ error) {
	builder, err := NewBuilder(BuilderArgs{
		Partition: args.Partition,
		Seq:       args.Seq,
	})
	if err != nil {
		return out, err
	}

	if err := builder.AppendSeq(slices.Values(args.Entries)); err != nil {
		return out, err
	}

	return builder.Build(), nil
}

func (me *Run) ID() uuid.UUID {
	return util.UUIDFromBytes(me.id)
}

func (me *Run) Partition() []byte {
	return me.partition
}

func (me *Run) Seq() uint64 {
	return me.seq
}

func (me *Run) NumEntries() uint64 {
	return uint64(len(me.entries))
}

func (me *Run) FirstKey() (out []byte, exists bool) {
	if len(me.entries) == 0 {
		return out, false
	}
	return me.entries[0].Key, true
}

func (me *Run) LastKey() (out []byte, exists bool) {
	if len(me.entries) == 0 {
		return out, false
	}
	return me.entries[len(me.entries)-1].Key, true
}

func (me *Run) Entries() iter.Seq[item.Item] {
	return slices.Values(me.entries)
}

// Items is a snapshot of the run's entries.
func (me *Run) Items() []item.Item {
	return slices.Clone(me.entries)
}

// Lookup finds the entry for a key using binary search. Delete markers are
// entries like any other; interpreting them is the reader's business.
func (me *Run) Lookup(key []byte) (out item.Item, exists bool) {
	idx, exists := slices.BinarySearchFunc(
		me.entries, key, func(entry item.Item, target []byte) int {
			return bytes.Compare(entry.Key, target)
		},
	)
	if !exists {
		return out, false
	}

	return me.entries[idx], true
}

// EncodedSize is the total envelope size of the run's entries.
func (me *Run) EncodedSize() (out uint64) {
	for _, entry := range me.entries {
		out += entry.EncodedSize()
	}
	return out
}

type BuilderArgs struct {
	Partition []byte
	Seq       uint64
}

// Builder accumulates entries for a run, enforcing the run contract on the
// way in: strictly increasing keys (which also makes them unique) and a
// single partition.
type Builder struct {
	run     Run
	lastKey []byte
}

func NewBuilder(args BuilderArgs) (out Builder, _ error) {
	if err := item.CheckPartition(args.Partition); err != nil {
		return out, err
	}

	return Builder{
		run: Run{
			id:        util.NewRandomUUIDBytes(),
			partition: args.Partition,
			seq:       args.Seq,
		},
	}, nil
}

func (me *Builder) Append(entry item.Item) error {
	if !bytes.Equal(entry.Partition, me.run.partition) {
		log.Printf("tried to append %q entry to %q run", entry.Partition, me.run.partition)
		return errors.Wrapf(ErrWrongPartition, "%q", entry.Partition)
	}
	if bytes.Compare(entry.Key, me.lastKey) != 1 {
		log.Printf("tried to append %v after last key %v", entry.Key, me.lastKey)
		return ErrOutOfOrderAppend
	}

	me.run.entries = append(me.run.entries, entry)
	me.lastKey = entry.Key
	return nil
}

func (me *Builder) AppendSeq(entries iter.Seq[item.Item]) error {
	for entry := range entries {
		if err := me.Append(entry); err != nil {
			return err
		}
	}
	return nil
}

// Build finalizes the run; the builder must not be reused afterwards.
func (me *Builder) Build() Run {
	return me.run
}
