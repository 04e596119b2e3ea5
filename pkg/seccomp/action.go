package seccomp

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	libseccomp "github.com/elastic/go-seccomp-bpf"
)

// Action is seccomp trap action
type Action uint32

// Action defines seccomp action to the syscall
// default value 0 is invalid
const (
	ActionAllow Action = iota + 1
	ActionErrno
	ActionTrace
	ActionKill
	ActionTrap
)

// DenyPermission and DenyFailure are the errno actions used for denied
// syscalls that should fail instead of killing the program
var (
	DenyPermission = ActionErrno.WithReturnCode(int16(syscall.EPERM))
	DenyFailure    = ActionErrno.WithReturnCode(int16(syscall.ENOSYS))
)

// WithReturnCode set the return code when action is trace or ban
func (a Action) WithReturnCode(code int16) Action {
	return a.Action() | Action(uint16(code))<<16
}

// ReturnCode get the return code
func (a Action) ReturnCode() int16 {
	return int16(a >> 16)
}

// Action get the basic action
func (a Action) Action() Action {
	return Action(a & 0xffff)
}

// Valid reports whether the basic action is known
func (a Action) Valid() bool {
	switch a.Action() {
	case ActionAllow, ActionErrno, ActionTrace, ActionKill, ActionTrap:
		return true
	}
	return false
}

// kernel returns the SECCOMP_RET_* value with SECCOMP_RET_DATA in the low 16 bits
func (a Action) kernel() uint32 {
	data := uint32(uint16(a.ReturnCode()))
	switch a.Action() {
	case ActionAllow:
		return uint32(libseccomp.ActionAllow)
	case ActionErrno:
		return uint32(libseccomp.ActionErrno) | data
	case ActionTrace:
		return uint32(libseccomp.ActionTrace) | data
	case ActionTrap:
		return uint32(libseccomp.ActionTrap) | data
	default:
		return uint32(libseccomp.ActionKillProcess)
	}
}

func (a Action) String() string {
	switch a.Action() {
	case ActionAllow:
		return "allow"
	case ActionKill:
		return "kill"
	case ActionTrap:
		return "trap"
	case ActionTrace:
		if c := a.ReturnCode(); c != 0 {
			return "trace:" + strconv.Itoa(int(c))
		}
		return "trace"
	case ActionErrno:
		switch syscall.Errno(a.ReturnCode()) {
		case syscall.EPERM:
			return "eperm"
		case syscall.ENOSYS:
			return "enosys"
		}
		return "errno:" + strconv.Itoa(int(a.ReturnCode()))
	}
	return "invalid"
}

// ParseAction parses the text form of an action:
// allow, kill, trap, trace, trace:<n>, eperm, enosys or errno:<n>
func ParseAction(s string) (Action, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	var a Action
	switch name {
	case "allow":
		a = ActionAllow
	case "kill":
		a = ActionKill
	case "trap":
		a = ActionTrap
	case "eperm":
		a = DenyPermission
	case "enosys":
		a = DenyFailure
	case "trace":
		a = ActionTrace
	case "errno":
		if !hasArg {
			return 0, fmt.Errorf("%w: %q: errno requires a value", ErrInvalidAction, s)
		}
		a = ActionErrno
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	if !hasArg {
		return a, nil
	}
	if a != ActionErrno && a != ActionTrace {
		return 0, fmt.Errorf("%w: %q: unexpected value", ErrInvalidAction, s)
	}
	n, err := strconv.ParseUint(arg, 10, 16)
	if err != nil || (a == ActionErrno && n == 0) {
		return 0, fmt.Errorf("%w: %q: bad value", ErrInvalidAction, s)
	}
	return a.WithReturnCode(int16(n)), nil
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAction, uint32(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
