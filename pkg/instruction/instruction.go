package instruction

import (
	"errors"
	"fmt"
	"math/rand"
)

// Fixed field widths. Only dest and src are configurable.
const (
	ModeWidth = 1
	OpWidth   = 3

	maxFieldWidth = 30
)

// Operand source selected by the mode bit.
const (
	ModeRegister uint8 = 0
	ModeInput    uint8 = 1
)

// ErrFieldOverflow is returned when a field value does not fit its width.
var ErrFieldOverflow = errors.New("instruction field overflow")

// ErrFormat is returned for an unusable width configuration.
var ErrFormat = errors.New("invalid instruction format")

// Word is one packed instruction.
type Word uint64

// Fields is the decoded view of a Word.
type Fields struct {
	Mode uint8
	Op   Op
	Dest uint32
	Src  uint32
}

// Format holds the field widths shared by every instruction in a run.
type Format struct {
	Dest uint `toml:"dest" cbor:"dest" json:"dest"`
	Src  uint `toml:"src" cbor:"src" json:"src"`
}

// NewFormat returns a validated format with the given dest and src widths.
func NewFormat(dest, src uint) (Format, error) {
	f := Format{Dest: dest, Src: src}
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

// Validate checks the widths.
func (f Format) Validate() error {
	if f.Dest < 1 || f.Dest > maxFieldWidth {
		return fmt.Errorf("%w: dest width %d not in [1, %d]", ErrFormat, f.Dest, maxFieldWidth)
	}
	if f.Src < 1 || f.Src > maxFieldWidth {
		return fmt.Errorf("%w: src width %d not in [1, %d]", ErrFormat, f.Src, maxFieldWidth)
	}
	return nil
}

// Widths returns the field widths in packing order: mode, op, dest, src.
func (f Format) Widths() [4]uint {
	return [4]uint{ModeWidth, OpWidth, f.Dest, f.Src}
}

// Bits returns the total word width.
func (f Format) Bits() uint {
	return ModeWidth + OpWidth + f.Dest + f.Src
}

// Fits reports whether w is representable in the format's width.
func (f Format) Fits(w Word) bool {
	return uint64(w)>>f.Bits() == 0
}

// Encode packs the fields most-significant first in the order mode|op|dest|src.
func (f Format) Encode(x Fields) (Word, error) {
	widths := f.Widths()
	vals := [4]uint64{uint64(x.Mode), uint64(x.Op), uint64(x.Dest), uint64(x.Src)}
	names := [4]string{"mode", "op", "dest", "src"}

	var w uint64
	for i, v := range vals {
		if v > mask(widths[i]) {
			return 0, fmt.Errorf("%w: %s=%d exceeds %d bits", ErrFieldOverflow, names[i], v, widths[i])
		}
		w = w<<widths[i] | v
	}
	return Word(w), nil
}

// Decode extracts the fields of w. Each field sits at a bit offset equal to
// the cumulative width of the fields before it, counted from the top of the
// word.
func (f Format) Decode(w Word) Fields {
	widths := f.Widths()
	total := f.Bits()

	var out [4]uint64
	offset := uint(0)
	for i, width := range widths {
		offset += width
		out[i] = (uint64(w) >> (total - offset)) & mask(width)
	}
	return Fields{
		Mode: uint8(out[0]),
		Op:   Op(out[1]),
		Dest: uint32(out[2]),
		Src:  uint32(out[3]),
	}
}

// Random returns a uniformly random word within the format's width.
func (f Format) Random(rng *rand.Rand) Word {
	return Word(rng.Uint64() & mask(f.Bits()))
}

// FlipBit flips bit (0 = least significant). Every bit of the word is
// eligible since the encoding carries no framing bits.
func (f Format) FlipBit(w Word, bit uint) (Word, error) {
	if bit >= f.Bits() {
		return w, fmt.Errorf("%w: bit %d outside %d-bit word", ErrFieldOverflow, bit, f.Bits())
	}
	return w ^ Word(1)<<bit, nil
}

func mask(width uint) uint64 {
	return 1<<width - 1
}
