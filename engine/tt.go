package engine

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/dylhunn/dragontoothmg"
)

// Bound classifies a stored score.
type Bound uint8

const (
	BoundExact Bound = iota // true value
	BoundLower              // true value >= stored (fail high)
	BoundUpper              // true value <= stored (fail low)
)

// Entry packing, low bits first:
//
//	bits  0-3   promotion piece (0 none, 1 N, 2 B, 3 R, 4 Q)
//	bits  4-11  destination square
//	bits 12-19  source square
//	bits 20-35  score, signed 16 bit
//	bits 36-43  depth
//	bits 44-47  bound kind
const (
	promotionShift   = 0
	destinationShift = 4
	originShift      = 12
	scoreShift       = 20
	depthShift       = 36
	boundShift       = 44

	promotionMask   = 0x000000000000000F
	destinationMask = 0x0000000000000FF0
	originMask      = 0x00000000000FF000
	scoreMask       = 0x0000000FFFF00000
	depthMask       = 0x00000FF000000000
	boundMask       = 0x0000F00000000000
)

// entry is one slot: the full Zobrist hash for exact-match verification
// plus the packed payload. 16 bytes.
type entry struct {
	hash  uint64
	value uint64
}

// Data is a decoded table entry.
type Data struct {
	Depth uint8
	Score int16
	Move  dragontoothmg.Move
	Bound Bound
}

// lockStripes is the number of mutexes guarding the slot array (a
// smaller table gets one mutex per slot). Slot i is guarded by mutex
// i mod the mutex count; the lock scope is a single entry read or
// write, never any search work.
const lockStripes = 256

// Table is the transposition table shared by all search workers. Fixed
// size, indexed by hash & mask, always-overwrite on collision.
type Table struct {
	slots    []entry
	locks    []sync.Mutex
	mask     uint64
	lockMask uint64
}

// NewTable creates a table with the given slot count, which must be a
// power of two.
func NewTable(size int) (*Table, error) {
	if size <= 0 || bits.OnesCount64(uint64(size)) != 1 {
		return nil, fmt.Errorf("transposition table size %d is not a power of two", size)
	}
	stripes := lockStripes
	if size < stripes {
		stripes = size
	}
	return &Table{
		slots:    make([]entry, size),
		locks:    make([]sync.Mutex, stripes),
		mask:     uint64(size - 1),
		lockMask: uint64(stripes - 1),
	}, nil
}

// NewTableMB creates a table of the largest power-of-two slot count
// fitting in sizeMB megabytes at 16 bytes per slot.
func NewTableMB(sizeMB int) *Table {
	if sizeMB <= 0 {
		sizeMB = DefaultHashMB
	}
	budget := uint64(sizeMB) * 1024 * 1024 / 16
	size := uint64(1)
	for size*2 <= budget {
		size *= 2
	}
	tt, err := NewTable(int(size))
	if err != nil {
		panic(err) // unreachable: size is a power of two by construction
	}
	return tt
}

// DefaultHashMB is the default table size in megabytes.
const DefaultHashMB = 64

// Get returns the decoded entry stored under hash. A slot whose stored
// hash differs is a collision miss, never a false hit.
func (t *Table) Get(hash uint64) (Data, bool) {
	idx := hash & t.mask
	lock := &t.locks[idx&t.lockMask]

	lock.Lock()
	stored := t.slots[idx]
	lock.Unlock()

	if stored.hash != hash || stored.value == 0 {
		return Data{}, false
	}
	return unpack(stored.value), true
}

// Set packs and stores an entry, unconditionally replacing whatever the
// slot held. The bound kind is derived from how score relates to the
// alpha the frame was entered with and to beta: at most originalAlpha
// means the search failed low (upper bound), at least beta means it
// failed high (lower bound), anything between is exact.
func (t *Table) Set(hash uint64, depth uint8, score int32, best dragontoothmg.Move, originalAlpha, beta int32) {
	bound := BoundExact
	if score <= originalAlpha {
		bound = BoundUpper
	} else if score >= beta {
		bound = BoundLower
	}
	packed := pack(best, int16(score), depth, bound)

	idx := hash & t.mask
	lock := &t.locks[idx&t.lockMask]

	lock.Lock()
	t.slots[idx] = entry{hash: hash, value: packed}
	lock.Unlock()
}

// Clear empties the table.
func (t *Table) Clear() {
	for i := range t.locks {
		t.locks[i].Lock()
	}
	for i := range t.slots {
		t.slots[i] = entry{}
	}
	for i := range t.locks {
		t.locks[i].Unlock()
	}
}

// Size returns the slot count.
func (t *Table) Size() int {
	return len(t.slots)
}

func pack(m dragontoothmg.Move, score int16, depth uint8, bound Bound) uint64 {
	var promo uint64
	switch m.Promote() {
	case dragontoothmg.Knight:
		promo = 1
	case dragontoothmg.Bishop:
		promo = 2
	case dragontoothmg.Rook:
		promo = 3
	case dragontoothmg.Queen:
		promo = 4
	}
	return promo<<promotionShift |
		uint64(uint8(m.To()))<<destinationShift |
		uint64(uint8(m.From()))<<originShift |
		uint64(uint16(score))<<scoreShift |
		uint64(depth)<<depthShift |
		uint64(bound)<<boundShift
}

func unpack(packed uint64) Data {
	var m dragontoothmg.Move
	m.Setfrom(dragontoothmg.Square((packed & originMask) >> originShift))
	m.Setto(dragontoothmg.Square((packed & destinationMask) >> destinationShift))
	switch (packed & promotionMask) >> promotionShift {
	case 1:
		m.Setpromote(dragontoothmg.Knight)
	case 2:
		m.Setpromote(dragontoothmg.Bishop)
	case 3:
		m.Setpromote(dragontoothmg.Rook)
	case 4:
		m.Setpromote(dragontoothmg.Queen)
	}
	return Data{
		Depth: uint8((packed & depthMask) >> depthShift),
		Score: int16(uint16((packed & scoreMask) >> scoreShift)),
		Move:  m,
		Bound: Bound((packed & boundMask) >> boundShift),
	}
}
