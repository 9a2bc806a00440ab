// Package iddict implements the per-recorder ID dictionary: a
// fixed-capacity open-addressing table mapping a (name hash, event
// kind) pair to an 8-bit local ID, plus the ordered (name, kind) list
// that a LocalPacketHeader ships to the decoder.
//
// The probing scheme and capacity (256 slots, one byte of ID space)
// keep to a style of small, allocation-free fixed-size helpers rather
// than a generic hash map.
package iddict

import "fmt"

// Capacity is the maximum number of distinct (hash, kind) pairs a
// Dict can hold. It is fixed by the 8-bit local ID space.
const Capacity = 256

// Kind discriminates the three event shapes a name can be interned
// under. The same name used as two different kinds occupies two
// distinct dictionary slots.
type Kind uint8

const (
	Instant Kind = iota
	RangeStart
	RangeEnd
)

func (k Kind) String() string {
	switch k {
	case Instant:
		return "Instant"
	case RangeStart:
		return "RangeStart"
	case RangeEnd:
		return "RangeEnd"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Tag is one entry of the ordered (name, kind) list carried in a
// packet header. StartID is only meaningful when Kind == RangeEnd: it
// names the local ID of the matching RangeStart event.
type Tag struct {
	Name    string
	Kind    Kind
	StartID uint8
}

// CapacityError is returned (and, on the recorder's fast path,
// panicked with) when interning would exceed Capacity distinct
// entries. This is a precondition violation the recorder is not
// expected to recover from.
type CapacityError struct {
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("iddict: capacity of %d (hash, kind) pairs exceeded", e.Capacity)
}

// slot key folds the event kind into the hash so Instant/RangeStart/
// RangeEnd of the same name occupy different slots.
func slotKey(hash uint32, kind Kind) uint32 {
	return hash + uint32(kind)
}

const multiplier = 0x9E3779B1

// Dict is a fixed-capacity, insertion-ordered (hash,kind) -> local ID
// map. The zero value is ready to use. Dict is not safe for
// concurrent use; each recorder owns exactly one.
type Dict struct {
	keys   [Capacity]uint32
	used   [Capacity]bool
	ids    [Capacity]uint8
	tags   []Tag
}

// Len returns the number of interned entries, equivalently one past
// the highest local ID in use.
func (d *Dict) Len() int { return len(d.tags) }

// Tags returns the ordered (name, kind) list built so far. The
// returned slice aliases Dict's storage; later interning appends to
// that storage, so a caller that retains the slice should copy it.
func (d *Dict) Tags() []Tag { return d.tags }

// TagAt returns the tag for local ID id. It panics if id is out of
// range, which would indicate a malformed packet.
func (d *Dict) TagAt(id uint8) Tag { return d.tags[id] }

// Intern returns the local ID for (hash, kind), inserting a new entry
// on first sight and recording name as its tag. Intern is idempotent:
// repeated calls with the same (hash, kind) return the same ID
// regardless of the name passed (the name of the first call wins, as
// collisions within a process are treated as identity).
//
// Intern panics with *CapacityError if the table is full and the pair
// is new. Use TryIntern to get the error back instead.
func (d *Dict) Intern(hash uint32, name string, kind Kind) uint8 {
	id, err := d.TryIntern(hash, name, kind)
	if err != nil {
		panic(err)
	}
	return id
}

// TryIntern is Intern without the panic.
func (d *Dict) TryIntern(hash uint32, name string, kind Kind) (uint8, error) {
	return d.internEnd(hash, name, kind, 0)
}

// InternRangeEnd interns a RangeEnd event, recording which RangeStart
// local ID it pairs with.
func (d *Dict) InternRangeEnd(hash uint32, name string, startID uint8) (uint8, error) {
	return d.internEnd(hash, name, RangeEnd, startID)
}

func (d *Dict) internEnd(hash uint32, name string, kind Kind, startID uint8) (uint8, error) {
	key := slotKey(hash, kind)
	idx := int((uint32(key) * multiplier) % Capacity)
	for i := 0; i < Capacity; i++ {
		if !d.used[idx] {
			if len(d.tags) >= Capacity {
				return 0, &CapacityError{Capacity: Capacity}
			}
			id := uint8(len(d.tags))
			d.keys[idx] = key
			d.used[idx] = true
			d.ids[idx] = id
			d.tags = append(d.tags, Tag{Name: name, Kind: kind, StartID: startID})
			return id, nil
		}
		if d.keys[idx] == key {
			return d.ids[idx], nil
		}
		idx = (idx + 1) % Capacity
	}
	return 0, &CapacityError{Capacity: Capacity}
}
