package compact

import (
	"bytes"
	"iter"
	"log"

	"github.com/pkg/errors"

	"github.com/skerrydb/skerry/storage/item"
	"github.com/skerrydb/skerry/storage/sortedrun"
	"github.com/skerrydb/skerry/util/heap"
)

var (
	ErrPartitionMismatch  = errors.New("runs belong to different partitions")
	ErrDuplicateSourceSeq = errors.New("runs share a sequence number")
)

type MergeArgs struct {
	Srcs []*sortedrun.Run

	// Only safe when the sources include every older run that could hold
	// these keys: markers whose work is finished are evicted instead of
	// carried forward.
	DropTombstones bool
}

// Merge folds the source runs into one run holding a single survivor per
// key. The output keeps the partition of its sources and the sequence number
// of the newest one; merging no runs yields the zero run.
func Merge(args MergeArgs) (out sortedrun.Run, _ error) {
	if len(args.Srcs) == 0 {
		return out, nil
	}

	partition := args.Srcs[0].Partition()
	seenSeqs := make(map[uint64]struct{}, len(args.Srcs))
	var maxSeq uint64
	for _, src := range args.Srcs {
		if !bytes.Equal(src.Partition(), partition) {
			log.Printf("tried to merge %q run into %q runs", src.Partition(), partition)
			return out, errors.Wrapf(ErrPartitionMismatch, "%q vs %q", src.Partition(), partition)
		}
		if _, ok := seenSeqs[src.Seq()]; ok {
			return out, errors.Wrapf(ErrDuplicateSourceSeq, "%d", src.Seq())
		}
		seenSeqs[src.Seq()] = struct{}{}
		maxSeq = max(maxSeq, src.Seq())
	}

	mux := newRunMux()
	for _, src := range args.Srcs {
		next, stop := iter.Pull(src.Entries())
		defer stop()

		mux.addRun(next, src.Seq())
	}

	builder, err := sortedrun.NewBuilder(sortedrun.BuilderArgs{
		Partition: partition,
		Seq:       maxSeq,
	})
	if err != nil {
		return out, err
	}

	for ci, err := range Fold(mux.records(), args.DropTombstones) {
		if err != nil {
			return out, err
		}
		if err := builder.Append(ToItem(ci, partition)); err != nil {
			return out, err
		}
	}

	return builder.Build(), nil
}

type runMuxEntry struct {
	current Record
	next    func() (item.Item, bool)
}

type runMux struct {
	heap heap.Heap[runMuxEntry]
}

func newRunMux() runMux {
	return runMux{
		heap: heap.NewHeap(func(a, b runMuxEntry) int {
			// pick lower keys first, and upon ties let the higher-precedence
			// record speak first; Fold expects the newest candidate at the
			// front of every group

			bytesComp := CompareBytes(a.current.Item, b.current.Item)
			if bytesComp != 0 {
				return bytesComp
			}

			return -Precedence(a.current.Item.Kind, a.current.Seq, b.current.Item.Kind, b.current.Seq)
		}),
	}
}

func (me *runMux) addRun(next func() (item.Item, bool), seq uint64) {
	entry, exists := next()
	if !exists {
		return
	}

	me.heap.Push(runMuxEntry{
		current: Record{Item: FromItem(entry), Seq: seq},
		next:    next,
	})
}

func (me *runMux) records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for me.heap.Size() > 0 {
			entry := me.heap.Pop()

			if next, exists := entry.next(); exists {
				me.heap.Push(runMuxEntry{
					current: Record{Item: FromItem(next), Seq: entry.current.Seq},
					next:    entry.next,
				})
			}

			if !yield(entry.current, nil) {
				return
			}
		}
	}
}
