package compact

import (
	"bytes"
	"iter"
	"log"

	"github.com/pkg/errors"
)

var (
	ErrRecordOrder = errors.New("records out of order")
)

// Record pairs a merge-side item with the recency of the source it came
// from; higher sequence numbers are newer.
type Record struct {
	Item CompactItem[[]byte, []byte]
	Seq  uint64
}

// Fold collapses a stream of records down to its survivors, at most one per
// key. The stream must be sorted by (key ascending, precedence descending):
// all records of a key adjacent, the newest speaking first. With
// dropTombstones set the caller asserts nothing older exists beneath this
// fold, so markers whose work is finished are evicted instead of carried
// forward.
//
// Within one key group, walking newest to oldest:
//   - a value survives as the live version;
//   - a hard tombstone survives, unless tombstones are being dropped;
//   - a weak tombstone annihilates together with the next older value, and
//     the walk continues with what remains, so an even older value can
//     resurface; it is discarded in favour of an older hard tombstone,
//     coalesces with adjacent weak tombstones, and survives on its own when
//     the group holds nothing older.
func Fold(
	records iter.Seq2[Record, error], dropTombstones bool,
) iter.Seq2[CompactItem[[]byte, []byte], error] {
	return func(yield func(CompactItem[[]byte, []byte], error) bool) {
		var (
			zero CompactItem[[]byte, []byte]

			groupKey  []byte
			haveGroup bool

			// survivor decided; the rest of the group is discarded
			settled bool

			// newest weak tombstone still looking for its older partner
			weakItem    CompactItem[[]byte, []byte]
			weakPending bool

			lastKind Kind
			lastSeq  uint64
		)

		flushGroup := func() bool {
			if weakPending && !settled && !dropTombstones {
				return yield(weakItem, nil)
			}
			return true
		}

		for record, err := range records {
			if err != nil {
				yield(zero, err)
				return
			}

			ci := record.Item
			if haveGroup && bytes.Compare(ci.Key, groupKey) < 0 {
				log.Printf("got record for key %v after key %v", ci.Key, groupKey)
				yield(zero, errors.Wrapf(ErrRecordOrder, "key %q after %q", ci.Key, groupKey))
				return
			}

			if !haveGroup || !bytes.Equal(ci.Key, groupKey) {
				if !flushGroup() {
					return
				}
				groupKey = ci.Key
				haveGroup = true
				settled = false
				weakPending = false
			} else if Precedence(ci.Kind, record.Seq, lastKind, lastSeq) >= 0 {
				log.Printf("got %s record at sequence %d at or above its predecessor", ci.Kind, record.Seq)
				yield(zero, errors.Wrapf(
					ErrRecordOrder, "precedence did not decrease within key %q", ci.Key,
				))
				return
			}
			lastKind, lastSeq = ci.Kind, record.Seq

			if settled {
				continue
			}

			if weakPending {
				switch ci.Kind {
				case KindValue:
					// the single-delete pair annihilates; older records stay
					// in play
					weakPending = false
				case KindTombstone:
					weakPending = false
					settled = true
					if !dropTombstones && !yield(ci, nil) {
						return
					}
				case KindWeakTombstone:
					// coalesces into the newest weak tombstone
				}
				continue
			}

			switch ci.Kind {
			case KindValue:
				settled = true
				if !yield(ci, nil) {
					return
				}
			case KindTombstone:
				settled = true
				if !dropTombstones && !yield(ci, nil) {
					return
				}
			case KindWeakTombstone:
				weakItem = ci
				weakPending = true
			}
		}

		flushGroup()
	}
}
