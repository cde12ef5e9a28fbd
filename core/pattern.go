package core

import (
	"encoding/binary"
	"errors"
)

var (
	ErrPatternFull    = errors.New("pattern full")
	ErrPatternStorage = errors.New("pattern storage too small")
)

// BlockDevice is NOR-flash-like storage: erased bytes read 0xFF and writes
// only clear bits. machine.Flash satisfies it.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// Record layout: milli-rpm u32 LE, steps u16 LE, direction, attribute.
const (
	recordSize = 8
	recordAttr = 7

	attrErased  = 0xFF
	attrWritten = 0xAA
	attrDirty   = 0x00
)

// MotionPattern keeps up to max segments in RAM and mirrors them to a block
// device. The device is split in chunks of max records; the live chunk is
// the first one not marked dirty. Clearing marks the live chunk dirty and
// moves to the next, so the device is erased only once every chunk is used.
type MotionPattern struct {
	dev    BlockDevice
	max    int
	chunks int
	chunk  int

	segs []MotionSegment
	rec  [recordSize]byte
}

// NewMotionPattern binds a pattern of at most max segments to dev.
func NewMotionPattern(dev BlockDevice, max int) (*MotionPattern, error) {
	chunkSize := int64(max) * recordSize
	if max <= 0 || chunkSize > dev.Size() || recordSize%dev.WriteBlockSize() != 0 {
		return nil, ErrPatternStorage
	}
	return &MotionPattern{
		dev:    dev,
		max:    max,
		chunks: int(dev.Size() / chunkSize),
		segs:   make([]MotionSegment, 0, max),
	}, nil
}

// Load finds the live chunk and reads its segments. Unreadable content
// erases the device.
func (p *MotionPattern) Load() error {
	p.segs = p.segs[:0]
	for p.chunk = 0; p.chunk < p.chunks; p.chunk++ {
		if err := p.read(0); err != nil {
			return err
		}
		if p.rec[recordAttr] != attrDirty {
			break
		}
	}
	if p.chunk == p.chunks {
		return p.erase()
	}

	for i := 0; i < p.max; i++ {
		if err := p.read(i); err != nil {
			return err
		}
		switch p.rec[recordAttr] {
		case attrErased:
			return nil
		case attrWritten:
			seg := decodeRecord(p.rec[:])
			if !seg.Valid() {
				DebugPrintln("[PATTERN] invalid record, erasing")
				return p.erase()
			}
			p.segs = append(p.segs, seg)
		default:
			DebugPrintln("[PATTERN] bad attribute, erasing")
			return p.erase()
		}
	}
	return nil
}

// Append stores seg after the last segment.
func (p *MotionPattern) Append(seg MotionSegment) error {
	if len(p.segs) == p.max {
		return ErrPatternFull
	}
	if !seg.Valid() {
		return ErrSegment
	}
	encodeRecord(p.rec[:], seg, attrWritten)
	if _, err := p.dev.WriteAt(p.rec[:], p.offset(len(p.segs))); err != nil {
		return err
	}
	p.segs = append(p.segs, seg)
	RecordEvent(EvtPattern, uint32(len(p.segs)-1), uint32(seg.Steps))
	return nil
}

// Clear drops every segment.
func (p *MotionPattern) Clear() error {
	if len(p.segs) == 0 {
		return nil
	}
	// rewrite the first record with only its attribute bits cleared
	if err := p.read(0); err != nil {
		return err
	}
	p.rec[recordAttr] = attrDirty
	if _, err := p.dev.WriteAt(p.rec[:], p.offset(0)); err != nil {
		return err
	}
	p.segs = p.segs[:0]

	if p.chunk++; p.chunk == p.chunks {
		return p.erase()
	}
	return nil
}

func (p *MotionPattern) Len() int { return len(p.segs) }

func (p *MotionPattern) Max() int { return p.max }

func (p *MotionPattern) Empty() bool { return len(p.segs) == 0 }

// At returns segment i.
func (p *MotionPattern) At(i int) (MotionSegment, bool) {
	if i < 0 || i >= len(p.segs) {
		return MotionSegment{}, false
	}
	return p.segs[i], true
}

// Segments returns a copy of the pattern.
func (p *MotionPattern) Segments() []MotionSegment {
	return append([]MotionSegment(nil), p.segs...)
}

// Chunk is the index of the live chunk.
func (p *MotionPattern) Chunk() int { return p.chunk }

func (p *MotionPattern) erase() error {
	p.chunk = 0
	p.segs = p.segs[:0]
	blocks := (p.dev.Size() + p.dev.EraseBlockSize() - 1) / p.dev.EraseBlockSize()
	return p.dev.EraseBlocks(0, blocks)
}

func (p *MotionPattern) offset(i int) int64 {
	return int64(p.chunk*p.max+i) * recordSize
}

func (p *MotionPattern) read(i int) error {
	_, err := p.dev.ReadAt(p.rec[:], p.offset(i))
	return err
}

func encodeRecord(b []byte, seg MotionSegment, attr byte) {
	binary.LittleEndian.PutUint32(b[0:4], seg.MilliRPM)
	binary.LittleEndian.PutUint16(b[4:6], seg.Steps)
	b[6] = byte(seg.Dir)
	b[recordAttr] = attr
}

func decodeRecord(b []byte) MotionSegment {
	return MotionSegment{
		MilliRPM: binary.LittleEndian.Uint32(b[0:4]),
		Steps:    binary.LittleEndian.Uint16(b[4:6]),
		Dir:      Direction(b[6]),
	}
}
