package stream

// FlushList is the intrusive "streams with pending rows" list spec §3.3
// describes, rooted in the engine rather than inside any one stream. Per
// the design note in spec §9 ("Intrusive stream list"), the original's
// hand-rolled doubly-linked pointers become ordinary Go pointer fields on
// TupleStream, manipulated only through this type so the engine never
// reaches into a stream's private linkage directly.
type FlushList struct {
	head *TupleStream
	tail *TupleStream
}

// NewFlushList constructs an empty list.
func NewFlushList() *FlushList { return &FlushList{} }

// Enqueue appends s to the tail if it isn't already linked.
func (l *FlushList) Enqueue(s *TupleStream) {
	if s.flushPrev != nil || s.flushNext != nil || l.head == s {
		return
	}
	s.flushPrev = l.tail
	if l.tail != nil {
		l.tail.flushNext = s
	} else {
		l.head = s
	}
	l.tail = s
}

// Remove unlinks s if it is currently in the list.
func (l *FlushList) Remove(s *TupleStream) {
	if s.flushPrev == nil && s.flushNext == nil && l.head != s {
		return
	}
	if s.flushPrev != nil {
		s.flushPrev.flushNext = s.flushNext
	} else {
		l.head = s.flushNext
	}
	if s.flushNext != nil {
		s.flushNext.flushPrev = s.flushPrev
	} else {
		l.tail = s.flushPrev
	}
	s.flushPrev = nil
	s.flushNext = nil
}

// PeriodicFlush walks from the head (oldest flush target first), flushing
// every stream whose interval has elapsed and removing it once its current
// block empties out, and stops at the first stream that isn't due yet.
func (l *FlushList) PeriodicFlush(nowMillis, lastCommittedSpHandle int64) {
	s := l.head
	for s != nil {
		next := s.flushNext
		if nowMillis-s.flushTargetMillis < s.cfg.FlushIntervalMs {
			break
		}
		emptied := s.PeriodicFlush(nowMillis, lastCommittedSpHandle)
		if emptied {
			l.Remove(s)
		}
		s = next
	}
}
