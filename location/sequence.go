/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package location

import (
	"iter"
	"slices"
	"time"
)

// NodeID addresses a node within a Sequence.
type NodeID int

// NoNode is the NodeID of a link that does not exist.
const NoNode NodeID = -1

type node struct {
	rec        Record
	prev, next NodeID
}

// Sequence is a chronologically ordered chain of location records. No two
// records in a sequence have the same timestamp. A sequence never changes
// after it is built, so it can be shared freely across goroutines.
type Sequence struct {
	nodes      []node
	first      NodeID
	last       NodeID
	size       int
	duplicates int
}

// Build sorts the records by timestamp and links them into a sequence.
// Of any records that have the same timestamp, only the first one in the
// input is kept; Duplicates reports how many were collapsed. If keep is
// non-nil, only records it approves are included, and the chain is linked
// in that filtered order. ErrNoLocations is returned if no records remain.
func Build(records []Record, keep Predicate) (*Sequence, error) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var duplicates int
	sorted = slices.CompactFunc(sorted, func(a, b Record) bool {
		if a.Timestamp.Equal(b.Timestamp) {
			duplicates++
			return true
		}
		return false
	})

	if keep != nil {
		sorted = slices.DeleteFunc(sorted, func(r Record) bool {
			return !keep(r.Timestamp, r.Point)
		})
	}

	seq := fromOrdered(sorted)
	if seq == nil {
		return nil, ErrNoLocations
	}
	seq.duplicates = duplicates
	return seq, nil
}

// fromOrdered links records that are already in strictly
// ascending timestamp order. It returns nil if there are none.
func fromOrdered(records []Record) *Sequence {
	if len(records) == 0 {
		return nil
	}
	seq := &Sequence{
		nodes: make([]node, len(records)),
		first: 0,
		last:  NodeID(len(records) - 1),
		size:  len(records),
	}
	for i, rec := range records {
		seq.nodes[i] = node{rec: rec, prev: NodeID(i - 1), next: NodeID(i + 1)}
	}
	seq.nodes[seq.last].next = NoNode
	return seq
}

// First returns the earliest node.
func (s *Sequence) First() NodeID { return s.first }

// Last returns the latest node.
func (s *Sequence) Last() NodeID { return s.last }

// Len returns the number of nodes in the sequence.
func (s *Sequence) Len() int { return s.size }

// Duplicates returns how many input records were dropped while
// building the sequence because an earlier record had the same
// timestamp.
func (s *Sequence) Duplicates() int { return s.duplicates }

// Record returns the record at the given node.
func (s *Sequence) Record(id NodeID) Record { return s.nodes[id].rec }

// Next returns the node after id, or NoNode.
func (s *Sequence) Next(id NodeID) NodeID { return s.nodes[id].next }

// Prev returns the node before id, or NoNode.
func (s *Sequence) Prev(id NodeID) NodeID { return s.nodes[id].prev }

// IsOrphan returns true if the node has neither a predecessor
// nor a successor.
func (s *Sequence) IsOrphan(id NodeID) bool {
	return s.nodes[id].prev == NoNode && s.nodes[id].next == NoNode
}

// Span returns the time between the first and last records.
func (s *Sequence) Span() time.Duration {
	return s.nodes[s.last].rec.Timestamp.Sub(s.nodes[s.first].rec.Timestamp)
}

// All iterates the nodes from first to last.
func (s *Sequence) All() iter.Seq2[NodeID, Record] {
	return func(yield func(NodeID, Record) bool) {
		for id := s.first; id != NoNode; id = s.nodes[id].next {
			if !yield(id, s.nodes[id].rec) {
				return
			}
		}
	}
}

// Records returns a copy of the records in chronological order.
func (s *Sequence) Records() []Record {
	recs := make([]Record, 0, s.size)
	for _, rec := range s.All() {
		recs = append(recs, rec)
	}
	return recs
}
