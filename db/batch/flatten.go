package batch

import (
	"github.com/pkg/errors"

	"github.com/skerrydb/skerry/storage/compact"
	"github.com/skerrydb/skerry/storage/sortedrun"
)

// Flatten collapses the staged mutations into one run per partition, in
// partition name order, folding same-key duplicates down to the newest
// mutation. The runs are stamped with consecutive sequence numbers starting
// at startSeq, so one call consumes a contiguous recency range from the
// caller.
func (me *Batch) Flatten(startSeq uint64) (out []sortedrun.Run, _ error) {
	seq := startSeq
	for _, partition := range me.Partitions() {
		run, err := me.flattenPartition(partition, seq)
		if err != nil {
			return nil, errors.Wrapf(err, "flattening partition %q", partition)
		}
		out = append(out, run)
		seq++
	}
	return out, nil
}

func (me *Batch) flattenPartition(partition []byte, seq uint64) (out sortedrun.Run, _ error) {
	builder, err := sortedrun.NewBuilder(sortedrun.BuilderArgs{
		Partition: partition,
		Seq:       seq,
	})
	if err != nil {
		return out, err
	}

	buffer := me.buffers[string(partition)]
	records := func(yield func(compact.Record, error) bool) {
		buffer.tree.Ascend(func(entry bufferedItem) bool {
			return yield(compact.Record{
				Item: compact.FromItem(entry.item),
				Seq:  entry.seq,
			}, nil)
		})
	}

	for ci, err := range compact.Fold(records, false) {
		if err != nil {
			return out, err
		}
		if err := builder.Append(compact.ToItem(ci, partition)); err != nil {
			return out, err
		}
	}

	return builder.Build(), nil
}
