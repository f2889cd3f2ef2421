package fileserver

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Acorn error codes returned in the return-code byte of an error reply.
const (
	CodeBadRename     uint8 = 0xB0
	CodeDirNotEmpty   uint8 = 0xB4
	CodeBadPassword   uint8 = 0xBB
	CodeNoAccess      uint8 = 0xBD
	CodeNotDir        uint8 = 0xBE
	CodeWhoAreYou     uint8 = 0xBF
	CodeTooManyOpen   uint8 = 0xC0
	CodeAlreadyOpen   uint8 = 0xC2
	CodeLocked        uint8 = 0xC3
	CodeExists        uint8 = 0xC4
	CodeDiscFull      uint8 = 0xC6
	CodeDiscProtected uint8 = 0xC9
	CodeBadName       uint8 = 0xCC
	CodeBadInfo       uint8 = 0xCF
	CodeNotFound      uint8 = 0xD6
	CodeChannel       uint8 = 0xDE
	CodeGeneric       uint8 = 0xFF
)

// Error is a failure reported to the client as an error reply.
type Error struct {
	Code    uint8
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("&%02X %s", e.Code, e.Message)
}

var (
	ErrBadRename     = &Error{CodeBadRename, "Bad rename"}
	ErrDirNotEmpty   = &Error{CodeDirNotEmpty, "Dir. not empty"}
	ErrBadPassword   = &Error{CodeBadPassword, "Wrong password"}
	ErrNoAccess      = &Error{CodeNoAccess, "Insufficient access"}
	ErrNotDir        = &Error{CodeNotDir, "Not a directory"}
	ErrWhoAreYou     = &Error{CodeWhoAreYou, "Who are you?"}
	ErrTooManyOpen   = &Error{CodeTooManyOpen, "Too many open files"}
	ErrAlreadyOpen   = &Error{CodeAlreadyOpen, "Already open"}
	ErrLocked        = &Error{CodeLocked, "Entry locked"}
	ErrExists        = &Error{CodeExists, "Already exists"}
	ErrDiscFull      = &Error{CodeDiscFull, "Disc full"}
	ErrDiscProtected = &Error{CodeDiscProtected, "Disc protected"}
	ErrBadName       = &Error{CodeBadName, "Bad file name"}
	ErrBadInfo       = &Error{CodeBadInfo, "Bad INFO argument"}
	ErrBadAttribute  = &Error{CodeBadInfo, "Bad attribute"}
	ErrNotFound      = &Error{CodeNotFound, "Not found"}
	ErrChannel       = &Error{CodeChannel, "Channel"}

	ErrNotImplemented = &Error{CodeGeneric, "Not yet implemented!"}
	ErrTimedOut       = &Error{CodeGeneric, "Transfer timed out"}
	ErrConfused       = &Error{CodeGeneric, "I'm confused"}
	ErrBadArgs        = &Error{CodeGeneric, "Bad argument to get_args"}
	ErrTooBig         = &Error{CodeGeneric, "File too big"}
)

// errnoCodes maps host errors onto the nearest Acorn error.
var errnoCodes = map[syscall.Errno]*Error{
	syscall.ENOENT:       ErrNotFound,
	syscall.EACCES:       ErrNoAccess,
	syscall.EPERM:        ErrNoAccess,
	syscall.ENOTDIR:      ErrNotDir,
	syscall.ENOTEMPTY:    ErrDirNotEmpty,
	syscall.EEXIST:       ErrExists,
	syscall.ENOSPC:       ErrDiscFull,
	syscall.EDQUOT:       ErrDiscFull,
	syscall.EROFS:        ErrDiscProtected,
	syscall.EMFILE:       ErrTooManyOpen,
	syscall.ENFILE:       ErrTooManyOpen,
	syscall.ENAMETOOLONG: ErrBadName,
	syscall.EXDEV:        ErrBadRename,
	syscall.EISDIR:       ErrNoAccess,
}

// toError converts any handler error into the error reply it produces.
func toError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if mapped, ok := errnoCodes[errno]; ok {
			return mapped
		}
		return &Error{CodeGeneric, capitalize(errno.Error())}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return ErrNoAccess
	}
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}
	return &Error{CodeGeneric, capitalize(err.Error())}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
