package stream

import "testing"

func TestSequencerInOrder(t *testing.T) {
	var s sequencer
	s.reset(1)

	for seq := int64(1); seq <= 5; seq++ {
		if gap := s.observe(seq); gap {
			t.Errorf("observe(%d) reported a gap in a strictly increasing run", seq)
		}
	}
	if s.gaps != 0 {
		t.Errorf("gaps = %d; want 0", s.gaps)
	}
	if s.last != 5 {
		t.Errorf("last = %d; want 5", s.last)
	}
}

func TestSequencerGapDetected(t *testing.T) {
	var s sequencer
	s.reset(1)

	for seq := int64(1); seq <= 5; seq++ {
		s.observe(seq)
	}
	if gap := s.observe(8); !gap {
		t.Error("observe(8) after 5 did not report a gap")
	}
	if s.gaps != 1 {
		t.Errorf("gaps = %d; want 1", s.gaps)
	}
	// The gap advances last; the stream is not repaired.
	if s.last != 8 {
		t.Errorf("last = %d; want 8", s.last)
	}
	if gap := s.observe(9); gap {
		t.Error("observe(9) after 8 reported a gap")
	}
}

func TestSequencerResetPerEpoch(t *testing.T) {
	var s sequencer
	s.reset(1)
	s.observe(1)
	s.observe(2)
	s.observe(3)

	s.reset(2)
	if s.epoch != 2 {
		t.Errorf("epoch = %d; want 2", s.epoch)
	}
	// Sequence 1 in a new epoch is in order, not a regression.
	if gap := s.observe(1); gap {
		t.Error("observe(1) after reset reported a gap")
	}
}

func TestSequencerDuplicateIsNotGap(t *testing.T) {
	var s sequencer
	s.reset(1)
	s.observe(1)
	s.observe(2)
	if gap := s.observe(2); gap {
		t.Error("duplicate sequence reported as gap")
	}
}
