package artifact

import (
	"encoding/binary"
	"fmt"
)

const (
	// cmp edi, imm32 (6 bytes) followed by je rel32 (6 bytes).
	entrySize = 12
	// mov eax, imm32 (5 bytes) followed by ret (1 byte).
	tailSize = 6
)

// Assemble builds the artifact for the values [lo, hi).
//
// Layout:
//
//	cmp edi, v ; je .even|.odd     for every v in [lo, hi)
//	mov eax, 2 ; ret
//	.even: mov eax, 1 ; ret
//	.odd:  mov eax, 0 ; ret
//
// The je target is picked by the parity of v.
func Assemble(lo, hi uint64) ([]byte, error) {
	if hi < lo || hi > 1<<32 {
		return nil, fmt.Errorf("bad range [%d, %d)", lo, hi)
	}

	count := int(hi - lo)
	tail := count * entrySize
	even := tail + tailSize
	odd := even + tailSize

	code := make([]byte, odd+tailSize)
	for i := 0; i < count; i++ {
		v := uint32(lo + uint64(i))
		at := i * entrySize

		code[at], code[at+1] = 0x81, 0xFF
		binary.LittleEndian.PutUint32(code[at+2:], v)

		dst := odd
		if v%2 == 0 {
			dst = even
		}
		next := at + entrySize
		code[at+6], code[at+7] = 0x0F, 0x84
		binary.LittleEndian.PutUint32(code[at+8:], uint32(int32(dst-next)))
	}

	putReturn(code[tail:], ResultInconclusive)
	putReturn(code[even:], ResultEven)
	putReturn(code[odd:], ResultOdd)
	return code, nil
}

func putReturn(b []byte, eax uint32) {
	b[0] = 0xB8
	binary.LittleEndian.PutUint32(b[1:], eax)
	b[5] = 0xC3
}
