package seccomp

import (
	"fmt"
	"sort"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/judgelight/judgelight/pkg/sysno"
)

const (
	// linearThreshold is the number of distinct syscall numbers up to which
	// the body is a linear compare chain instead of a decision tree
	linearThreshold = 32
	// leafSize is the size of linear chains at the leaves of the tree
	leafSize = 4
	// maxInstructions is BPF_MAXINSNS
	maxInstructions = 4096

	// seccomp_data offsets
	offsetNr   = 0
	offsetArch = 4
	offsetArgs = 16

	x32SyscallBit = 0x40000000
)

// CompileOption customizes Compile
type CompileOption func(*compileOptions)

type compileOptions struct {
	execveat        bool
	errorPipe       *errorPipe
	linearThreshold int
}

type errorPipe struct {
	fd, size uint32
}

// WithExecveat implicitly allows execveat in addition to execve, needed when
// the program is executed from a memfd
func WithExecveat() CompileOption {
	return func(o *compileOptions) {
		o.execveat = true
	}
}

// WithErrorPipe keeps the failure report of the child working under the
// filter: write(fd, _, size) is allowed whatever the rules say about write,
// and exit and nanosleep are allowed unless the rule set names them. The
// argument check reads the low word first, so only little-endian
// architectures are supported.
func WithErrorPipe(fd, size int) CompileOption {
	return func(o *compileOptions) {
		o.errorPipe = &errorPipe{fd: uint32(fd), size: uint32(size)}
	}
}

type rule struct {
	nr     uint32
	action Action
}

// Compile translates the rule set into a seccomp BPF program for the
// architecture of the table. Every named syscall must exist in the table.
// Under a default other than allow, execve is allowed unless the rule set
// names it, so the final exec of the supervised program succeeds.
func Compile(rs *RuleSet, t *sysno.Table, opts ...CompileOption) (Filter, error) {
	o := compileOptions{linearThreshold: linearThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if !rs.Default.Valid() {
		return nil, fmt.Errorf("seccomp: default: %w: %d", ErrInvalidAction, uint32(rs.Default))
	}

	actions := make(map[uint32]Action)
	owner := make(map[uint32]string)
	for _, name := range rs.Names() {
		a := rs.Rules[name]
		if !a.Valid() {
			return nil, fmt.Errorf("seccomp: %s: %w: %d", name, ErrInvalidAction, uint32(a))
		}
		nr, err := t.Number(name)
		if err != nil {
			return nil, fmt.Errorf("seccomp: %w", err)
		}
		if prev, ok := actions[nr]; ok && prev != a {
			return nil, fmt.Errorf("%w: %s=%v and %s=%v share number %d", ErrConflict, owner[nr], prev, name, a, nr)
		}
		actions[nr] = a
		owner[nr] = name
	}

	var guard []bpf.Instruction
	if rs.Default.Action() != ActionAllow {
		implicit := []string{"execve"}
		if o.execveat {
			implicit = append(implicit, "execveat")
		}
		if o.errorPipe != nil {
			implicit = append(implicit, "exit", "nanosleep")
		}
		for _, name := range implicit {
			if _, ok := rs.Rules[name]; ok {
				continue
			}
			nr, err := t.Number(name)
			if err != nil {
				return nil, fmt.Errorf("seccomp: %w", err)
			}
			if _, ok := actions[nr]; !ok {
				actions[nr] = ActionAllow
			}
		}
	}
	if o.errorPipe != nil {
		nr, err := t.Number("write")
		if err != nil {
			return nil, fmt.Errorf("seccomp: %w", err)
		}
		if a, ok := actions[nr]; (ok && a.Action() != ActionAllow) || (!ok && rs.Default.Action() != ActionAllow) {
			guard = writeGuard(nr, *o.errorPipe)
		}
	}

	rules := make([]rule, 0, len(actions))
	for nr, a := range actions {
		if a == rs.Default {
			continue
		}
		rules = append(rules, rule{nr: nr, action: a})
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].nr < rules[j].nr
	})

	prog := assemble(t.Arch(), guard, rules, rs.Default, o.linearThreshold)
	if len(prog) > maxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", ErrTooLarge, len(prog))
	}
	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, fmt.Errorf("seccomp: assemble: %w", err)
	}
	return newFilter(raw), nil
}

// assemble builds the program: validate arch, reject x32 on x86_64, run the
// guard if any, then dispatch on the syscall number over rules sorted by
// number
func assemble(arch uint32, guard []bpf.Instruction, rules []rule, def Action, threshold int) []bpf.Instruction {
	kill := bpf.RetConstant{Val: ActionKill.kernel()}
	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: offsetArch, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: arch, SkipTrue: 1},
		kill,
		bpf.LoadAbsolute{Off: offsetNr, Size: 4},
	}
	if arch == unix.AUDIT_ARCH_X86_64 {
		prog = append(prog,
			bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: x32SyscallBit, SkipFalse: 1},
			kill,
		)
	}
	prog = append(prog, guard...)
	if len(rules) <= threshold {
		return append(prog, linear(rules, def)...)
	}
	return append(prog, tree(rules, def)...)
}

// writeGuard allows write when fd and count match the pipe exactly, both
// 64-bit arguments compared as low then high word. Anything else reloads
// the number for the body.
func writeGuard(nr uint32, p errorPipe) []bpf.Instruction {
	return []bpf.Instruction{
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: nr, SkipFalse: 9},
		bpf.LoadAbsolute{Off: offsetArgs, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p.fd, SkipFalse: 7},
		bpf.LoadAbsolute{Off: offsetArgs + 4, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0, SkipFalse: 5},
		bpf.LoadAbsolute{Off: offsetArgs + 16, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p.size, SkipFalse: 3},
		bpf.LoadAbsolute{Off: offsetArgs + 20, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0, SkipFalse: 1},
		bpf.RetConstant{Val: ActionAllow.kernel()},
		bpf.LoadAbsolute{Off: offsetNr, Size: 4},
	}
}

func linear(rules []rule, def Action) []bpf.Instruction {
	ret := make([]bpf.Instruction, 0, len(rules)*2+1)
	for _, r := range rules {
		ret = append(ret,
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: r.nr, SkipFalse: 1},
			bpf.RetConstant{Val: r.action.kernel()},
		)
	}
	return append(ret, bpf.RetConstant{Val: def.kernel()})
}

// tree splits at the median: numbers >= pivot fall through to the jump over
// the left subtree, smaller numbers continue into the left subtree
func tree(rules []rule, def Action) []bpf.Instruction {
	if len(rules) <= leafSize {
		return linear(rules, def)
	}
	mid := len(rules) / 2
	left := tree(rules[:mid], def)
	right := tree(rules[mid:], def)

	ret := make([]bpf.Instruction, 0, len(left)+len(right)+2)
	ret = append(ret,
		bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: rules[mid].nr, SkipFalse: 1},
		bpf.Jump{Skip: uint32(len(left))},
	)
	ret = append(ret, left...)
	return append(ret, right...)
}
