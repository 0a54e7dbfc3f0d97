package gpmf

import "fmt"

// Kind classifies a decode error, so callers can match on errors.As
// without parsing message text.
type Kind int

// Error kinds, following the component responsible for raising them.
const (
	KindIO Kind = iota
	KindInvalidFileType
	KindTruncated
	KindMissingType
	KindDecodeTimestamp
	KindDecodeUTF8
	KindDecodeOutOfRange
	KindNoData
	KindNoSuchTrack
	KindNoMuid
	KindNoGumi
	KindFingerprintMismatch
	KindInconsistentSerial
	KindPathNotSet
	KindNoParentDir
	KindNoSession
	KindMaxFileSizeExceeded
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidFileType:
		return "invalid_file_type"
	case KindTruncated:
		return "truncated"
	case KindMissingType:
		return "missing_type"
	case KindDecodeTimestamp:
		return "decode_timestamp"
	case KindDecodeUTF8:
		return "decode_utf8"
	case KindDecodeOutOfRange:
		return "decode_out_of_range"
	case KindNoData:
		return "no_data"
	case KindNoSuchTrack:
		return "no_such_track"
	case KindNoMuid:
		return "no_muid"
	case KindNoGumi:
		return "no_gumi"
	case KindFingerprintMismatch:
		return "fingerprint_mismatch"
	case KindInconsistentSerial:
		return "inconsistent_serial"
	case KindPathNotSet:
		return "path_not_set"
	case KindNoParentDir:
		return "no_parent_dir"
	case KindNoSession:
		return "no_session"
	case KindMaxFileSizeExceeded:
		return "max_file_size_exceeded"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with context and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	FourCC  FourCC // set for Truncated
	Offset  int    // set for Truncated
	Path    string // set for InvalidFileType, NoSuchTrack
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTruncated:
		return fmt.Sprintf("truncated at %s offset %d: %s", e.FourCC, e.Offset, e.Message)
	case KindNoSuchTrack, KindInvalidFileType:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, &Error{Kind: KindNoData}) style matching on Kind
// alone, ignoring the other fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewError builds an Error of the given Kind for use by collaborator
// packages (mp4, jpegseg, gopro) that share this error taxonomy.
func NewError(kind Kind, message string) *Error {
	return newErr(kind, message)
}

// WrapError builds an Error of the given Kind wrapping a lower-level cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return wrapErr(kind, message, cause)
}

// WithPath attaches a Path to an Error (for NoSuchTrack/InvalidFileType).
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Truncated builds the Truncated{fourcc, offset} error variant.
func Truncated(fourcc FourCC, offset int, message string) *Error {
	return &Error{Kind: KindTruncated, FourCC: fourcc, Offset: offset, Message: message}
}
