package compact

// Marker rank breaks recency ties: a hard delete outranks the value it
// deletes, and a weak tombstone yields to both.
func kindRank(kind Kind) int {
	switch kind {
	case KindTombstone:
		return 2
	case KindValue:
		return 1
	default:
		return 0
	}
}

// Precedence is the total order deciding which of two same-key candidates
// speaks for the newer state: positive when a precedes b, negative when b
// precedes a, zero only for identical (kind, recency) pairs. Recency wins
// outright; marker rank decides within one generation.
func Precedence(aKind Kind, aSeq uint64, bKind Kind, bSeq uint64) int {
	if aSeq != bSeq {
		if aSeq > bSeq {
			return 1
		}
		return -1
	}
	return kindRank(aKind) - kindRank(bKind)
}
