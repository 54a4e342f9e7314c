package record

// FlagKind enumerates the five ways a user's value states can be
// selected.
type FlagKind int

const (
	FlagSpecificVersion FlagKind = iota
	FlagSpecificEpoch
	FlagLeqEpoch
	FlagMaxEpoch
	FlagMinEpoch
)

// RetrievalFlag selects which version of a user's states a query
// resolves to. Value carries the version/epoch operand for the
// operand-bearing variants; it is ignored by MaxEpoch and MinEpoch.
type RetrievalFlag struct {
	Kind  FlagKind
	Value uint64
}

// SpecificVersion selects the state with the given version.
func SpecificVersion(version uint64) RetrievalFlag {
	return RetrievalFlag{Kind: FlagSpecificVersion, Value: version}
}

// SpecificEpoch selects the state committed at the given epoch.
func SpecificEpoch(epoch uint64) RetrievalFlag {
	return RetrievalFlag{Kind: FlagSpecificEpoch, Value: epoch}
}

// LeqEpoch selects the state with the greatest epoch <= the given epoch.
func LeqEpoch(epoch uint64) RetrievalFlag {
	return RetrievalFlag{Kind: FlagLeqEpoch, Value: epoch}
}

// MaxEpoch selects the state with the greatest epoch.
func MaxEpoch() RetrievalFlag {
	return RetrievalFlag{Kind: FlagMaxEpoch}
}

// MinEpoch selects the state with the smallest epoch.
func MinEpoch() RetrievalFlag {
	return RetrievalFlag{Kind: FlagMinEpoch}
}

// SelectByFlag picks the best candidate among states (all assumed to
// belong to the same user) according to flag. It returns nil if no
// candidate matches: states is empty, no state has the requested
// version/epoch, or (for LeqEpoch) every epoch exceeds the bound.
func SelectByFlag(states []*ValueState, flag RetrievalFlag) *ValueState {
	var best *ValueState
	for _, s := range states {
		switch flag.Kind {
		case FlagSpecificVersion:
			if s.Version == flag.Value {
				return s
			}
		case FlagSpecificEpoch:
			if s.Epoch == flag.Value {
				return s
			}
		case FlagLeqEpoch:
			if s.Epoch <= flag.Value && (best == nil || s.Epoch > best.Epoch) {
				best = s
			}
		case FlagMaxEpoch:
			if best == nil || s.Epoch > best.Epoch {
				best = s
			}
		case FlagMinEpoch:
			if best == nil || s.Epoch < best.Epoch {
				best = s
			}
		}
	}
	return best
}

// Overrides reports whether tx should replace db under flag, anchored at
// db's epoch. This is the flag-directed override table from the
// mediator's user-state merge logic: "specific"
// lookups always take the transactional value since the buffer already
// applied the filter; range lookups take it only when it is at least as
// extreme as the persisted value in the requested direction.
func Overrides(dbEpoch uint64, tx *ValueState, flag RetrievalFlag) bool {
	switch flag.Kind {
	case FlagSpecificVersion, FlagSpecificEpoch:
		return true
	case FlagLeqEpoch, FlagMaxEpoch:
		return tx.Epoch >= dbEpoch
	case FlagMinEpoch:
		return tx.Epoch <= dbEpoch
	default:
		return false
	}
}
