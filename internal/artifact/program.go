// Package artifact loads and runs the per-key computations.
//
// An artifact is a flat x86-64 code blob produced by Assemble (or by the
// original nasm-based generator). Artifacts are never executed natively:
// Interpret walks the small instruction subset they use, with the target
// in edi, and returns eax at the first ret.
package artifact

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/iseven/internal/domain"
)

// Return values in eax.
const (
	ResultOdd          = 0
	ResultEven         = 1
	ResultInconclusive = 2
)

// Code is random access to an artifact's bytes.
// *mmap.ReaderAt satisfies it directly.
type Code interface {
	Len() int
	At(i int) byte
}

// Bytes adapts an in-memory artifact to Code.
type Bytes []byte

func (b Bytes) Len() int { return len(b) }

func (b Bytes) At(i int) byte { return b[i] }

// Interpreter errors. Callers wrap them into load errors naming the key.
var (
	ErrEmpty      = errors.New("missing artifact")
	ErrTruncated  = errors.New("truncated instruction")
	ErrBadOpcode  = errors.New("unsupported instruction")
	ErrBadJump    = errors.New("jump target out of range")
	ErrStepBudget = errors.New("step budget exceeded")
)

// Interpret runs code with edi = target and returns eax at ret.
//
// Supported instructions:
//
//	81 FF id   cmp edi, imm32
//	83 FF ib   cmp edi, imm8 (sign-extended)
//	74 cb      je rel8        0F 84 cd  je rel32
//	75 cb      jne rel8       0F 85 cd  jne rel32
//	B8 id      mov eax, imm32
//	31 C0      xor eax, eax
//	C3         ret
//
// Execution stops with an error on anything else, on a jump outside the
// blob, or after Len()+1 steps (only a backwards loop gets that far).
func Interpret(code Code, target uint32) (uint32, error) {
	n := code.Len()
	if n == 0 {
		return 0, ErrEmpty
	}

	var (
		eax uint32
		zf  bool
		pc  int
	)

	read32 := func(at int) (uint32, error) {
		if at+4 > n {
			return 0, fmt.Errorf("%w at offset %#x", ErrTruncated, pc)
		}
		var b [4]byte
		for i := range b {
			b[i] = code.At(at + i)
		}
		return binary.LittleEndian.Uint32(b[:]), nil
	}
	need := func(size int) error {
		if pc+size > n {
			return fmt.Errorf("%w at offset %#x", ErrTruncated, pc)
		}
		return nil
	}
	jump := func(next int, rel int32, taken bool) (int, error) {
		if !taken {
			return next, nil
		}
		dst := next + int(rel)
		if dst < 0 || dst >= n {
			return 0, fmt.Errorf("%w: %#x -> %#x", ErrBadJump, pc, dst)
		}
		return dst, nil
	}

	for steps := 0; steps <= n; steps++ {
		if pc < 0 || pc >= n {
			return 0, fmt.Errorf("%w: pc %#x", ErrBadJump, pc)
		}

		op := code.At(pc)
		switch {
		case op == 0xC3:
			return eax, nil

		case op == 0xB8:
			imm, err := read32(pc + 1)
			if err != nil {
				return 0, err
			}
			eax = imm
			pc += 5

		case op == 0x31:
			if err := need(2); err != nil {
				return 0, err
			}
			if code.At(pc+1) != 0xC0 {
				return 0, fmt.Errorf("%w: 31 %02x at offset %#x", ErrBadOpcode, code.At(pc+1), pc)
			}
			eax, zf = 0, true
			pc += 2

		case op == 0x81:
			if err := need(6); err != nil {
				return 0, err
			}
			if code.At(pc+1) != 0xFF {
				return 0, fmt.Errorf("%w: 81 %02x at offset %#x", ErrBadOpcode, code.At(pc+1), pc)
			}
			imm, err := read32(pc + 2)
			if err != nil {
				return 0, err
			}
			zf = target == imm
			pc += 6

		case op == 0x83:
			if err := need(3); err != nil {
				return 0, err
			}
			if code.At(pc+1) != 0xFF {
				return 0, fmt.Errorf("%w: 83 %02x at offset %#x", ErrBadOpcode, code.At(pc+1), pc)
			}
			zf = target == uint32(int32(int8(code.At(pc+2))))
			pc += 3

		case op == 0x74 || op == 0x75:
			if err := need(2); err != nil {
				return 0, err
			}
			rel := int32(int8(code.At(pc + 1)))
			next, err := jump(pc+2, rel, zf == (op == 0x74))
			if err != nil {
				return 0, err
			}
			pc = next

		case op == 0x0F:
			if err := need(6); err != nil {
				return 0, err
			}
			op2 := code.At(pc + 1)
			if op2 != 0x84 && op2 != 0x85 {
				return 0, fmt.Errorf("%w: 0f %02x at offset %#x", ErrBadOpcode, op2, pc)
			}
			raw, err := read32(pc + 2)
			if err != nil {
				return 0, err
			}
			next, err := jump(pc+6, int32(raw), zf == (op2 == 0x84))
			if err != nil {
				return 0, err
			}
			pc = next

		default:
			return 0, fmt.Errorf("%w: %02x at offset %#x", ErrBadOpcode, op, pc)
		}
	}

	return 0, ErrStepBudget
}

// VerdictOf maps an artifact's return value to a verdict.
// Any nonzero value other than ResultInconclusive means even.
func VerdictOf(eax uint32) domain.Verdict {
	switch eax {
	case ResultInconclusive:
		return domain.Inconclusive
	case ResultOdd:
		return domain.False
	default:
		return domain.True
	}
}
