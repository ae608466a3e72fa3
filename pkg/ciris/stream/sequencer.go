package stream

// sequencer tracks the last delivered sequence number within one connection
// epoch. Sequence numbers restart with every physical connection, so reset
// must be called once per successful connect.
//
// The transport gives at-most-once delivery and there is no retransmission
// protocol; a gap is surfaced for observability and then tolerated.
type sequencer struct {
	epoch uint64
	last  int64
	gaps  uint64
}

// reset clears the sequence expectation for a new epoch.
func (s *sequencer) reset(epoch uint64) {
	s.epoch = epoch
	s.last = 0
}

// observe records a received sequence number and reports whether a gap was
// detected (seq > last+1). last advances to seq either way; the stream is
// never re-ordered or repaired.
func (s *sequencer) observe(seq int64) bool {
	gap := seq > s.last+1
	if gap {
		s.gaps++
	}
	s.last = seq
	return gap
}
