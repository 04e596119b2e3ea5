// Package seccomp compiles syscall rule sets into seccomp BPF filters
package seccomp

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/bpf"
)

// Filter is the BPF seccomp filter value, 8 bytes per instruction in
// native byte order as struct sock_filter
type Filter []byte

func newFilter(raw []bpf.RawInstruction) Filter {
	b := make([]byte, len(raw)*8)
	for i, r := range raw {
		binary.NativeEndian.PutUint16(b[i*8:], r.Op)
		b[i*8+2] = r.Jt
		b[i*8+3] = r.Jf
		binary.NativeEndian.PutUint32(b[i*8+4:], r.K)
	}
	return Filter(b)
}

// Len returns the number of instructions
func (f Filter) Len() int {
	return len(f) / 8
}

// Instructions decodes the filter back into BPF instructions
func (f Filter) Instructions() ([]bpf.Instruction, error) {
	if len(f)%8 != 0 {
		return nil, fmt.Errorf("seccomp: filter length %d is not a multiple of 8", len(f))
	}
	ret := make([]bpf.Instruction, 0, f.Len())
	for i := 0; i < len(f); i += 8 {
		r := bpf.RawInstruction{
			Op: binary.NativeEndian.Uint16(f[i:]),
			Jt: f[i+2],
			Jf: f[i+3],
			K:  binary.NativeEndian.Uint32(f[i+4:]),
		}
		ret = append(ret, r.Disassemble())
	}
	return ret, nil
}
