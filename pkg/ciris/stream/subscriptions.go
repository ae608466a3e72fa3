package stream

import (
	"sort"
	"sync"
)

// subscriptionSet is the desired set of (channel, filter) pairs. The server
// keeps no subscription memory across physical connections, so the full set
// is replayed on every entry into the connected state.
//
// The set is owned by the Stream; replay reads a snapshot so live
// subscribe/unsubscribe calls cannot tear a reconnect in progress.
type subscriptionSet struct {
	mu       sync.Mutex
	channels map[string]ChannelFilter
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{channels: make(map[string]ChannelFilter)}
}

// set inserts or replaces entries. Replacing a channel's filter is a new
// subscribe, not a mutation of the stored filter.
func (s *subscriptionSet) set(channels map[string]ChannelFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch, f := range channels {
		s.channels[ch] = f
	}
}

// remove deletes entries so they are not replayed on reconnect.
func (s *subscriptionSet) remove(channels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		delete(s.channels, ch)
	}
}

// snapshot returns a copy of the current set for replay.
func (s *subscriptionSet) snapshot() map[string]ChannelFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ChannelFilter, len(s.channels))
	for ch, f := range s.channels {
		out[ch] = f
	}
	return out
}

// names returns the subscribed channel names in sorted order.
func (s *subscriptionSet) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (s *subscriptionSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make(map[string]ChannelFilter)
}
