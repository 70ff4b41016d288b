package batch

import (
	"bytes"
	"iter"
	"slices"

	"github.com/google/btree"

	"github.com/skerrydb/skerry/storage/item"
)

// Batch buffers mutations per partition, in key order, until they are
// flattened into runs. Every staged mutation is kept, so a batch replays the
// caller's intent in full; flattening folds same-key duplicates down to the
// newest one. A batch is built by a single writer (or under caller
// synchronization) and handed off; there is no internal locking.
type Batch struct {
	limits  item.Limits
	buffers map[string]*partitionBuffer

	// per-mutation counter, doubling as intra-batch recency
	nextSeq uint64
	count   int
}

type partitionBuffer struct {
	partition []byte
	tree      *btree.BTreeG[bufferedItem]
}

type bufferedItem struct {
	item item.Item
	seq  uint64
}

// sort by key first and newest mutation first within a key, so flattening is
// an in-order walk
func lessBufferedItem(a, b bufferedItem) bool {
	if comp := bytes.Compare(a.item.Key, b.item.Key); comp != 0 {
		return comp < 0
	}
	return a.seq > b.seq
}

type NewArgs struct {
	Limits item.Limits
}

func New(args NewArgs) *Batch {
	return &Batch{
		limits:  args.Limits,
		buffers: make(map[string]*partitionBuffer),
	}
}

// Put stages a value write.
func (me *Batch) Put(partition, key, value []byte) error {
	return me.add(partition, key, value, item.Value)
}

// Delete stages a hard delete: every older version of the key is suppressed.
func (me *Batch) Delete(partition, key []byte) error {
	return me.add(partition, key, nil, item.Tombstone)
}

// DeleteWeak stages a single delete: only the most recent version of the key
// is suppressed, letting an older one resurface. Only safe when the key is
// written once and never blindly overwritten.
func (me *Batch) DeleteWeak(partition, key []byte) error {
	return me.add(partition, key, nil, item.WeakTombstone)
}

func (me *Batch) add(partition, key, value []byte, valueType item.ValueType) error {
	entry, err := item.New(partition, key, value, valueType, me.limits)
	if err != nil {
		return err
	}

	buffer, ok := me.buffers[string(partition)]
	if !ok {
		buffer = &partitionBuffer{
			partition: entry.Partition,
			tree:      btree.NewG(2, lessBufferedItem),
		}
		me.buffers[string(partition)] = buffer
	}

	buffer.tree.ReplaceOrInsert(bufferedItem{item: entry, seq: me.nextSeq})
	me.nextSeq++
	me.count++
	return nil
}

// Len is the number of staged mutations, duplicates included.
func (me *Batch) Len() int {
	return me.count
}

func (me *Batch) IsEmpty() bool {
	return me.count == 0
}

// Clear drops all staged mutations, keeping the configured limits.
func (me *Batch) Clear() {
	me.buffers = make(map[string]*partitionBuffer)
	me.nextSeq = 0
	me.count = 0
}

// EncodedSize is the total envelope size of the staged mutations, duplicates
// included.
func (me *Batch) EncodedSize() (out uint64) {
	for _, buffer := range me.buffers {
		buffer.tree.Ascend(func(entry bufferedItem) bool {
			out += entry.item.EncodedSize()
			return true
		})
	}
	return out
}

// Partitions lists the partitions holding staged mutations, in name order.
func (me *Batch) Partitions() (out [][]byte) {
	for _, buffer := range me.buffers {
		out = append(out, buffer.partition)
	}
	slices.SortFunc(out, bytes.Compare)
	return out
}

// Items yields the staged mutations of one partition in (key ascending,
// newest first) order, duplicates included.
func (me *Batch) Items(partition []byte) iter.Seq[item.Item] {
	return func(yield func(item.Item) bool) {
		buffer, ok := me.buffers[string(partition)]
		if !ok {
			return
		}
		buffer.tree.Ascend(func(entry bufferedItem) bool {
			return yield(entry.item)
		})
	}
}
