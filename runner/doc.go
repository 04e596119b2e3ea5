// Package runner provides common types for the program runner together with
// the verdict classifier: Result, Limit, Size and Status.
//
// Status
//
// Status defines the program running result status including
//  Normal
//  Program Error
//      Resource Limit Exceeded (Time / Memory / Output)
//      Unauthorized Access (Disallowed Syscall)
//      Runtime Error (Signalled / Nonzero Exit Status)
//  Program Runner Error
//
// Size
//
// Size defines size in bytes, underlying type is uint64 so it
// is effective to store up to EiB of size
//
// Limit
//
// Limit defines the CPU time, real time, memory, output, stack and process
// restrictions applied to a single run
//
// Result
//
// Result defines program running result including
// Status, ExitStatus, Signal, Detailed Error, user and system CPU time,
// peak resident memory, output size, SetUpTime and RunningTime (in real clock)
//
// Classify
//
// Classify maps the observed usage of a reaped child and the limit onto a
// Status, the first matching verdict wins
//
// Runner
//
// General interface to run a program, including a context
// for cancellation
package runner
