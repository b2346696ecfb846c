// Package averror formats the negative error codes returned by the media
// codec library into the strings that library prints for them.
package averror

import (
	"fmt"
	"io"
	"strings"
	"syscall"
)

// MaxStringSize bounds a formatted message, terminator included.
const MaxStringSize = 64

// Code is a codec library return value. Negative values are errors: either
// a negated errno or a negated four character tag.
type Code int

func tag(a, b, c, d byte) Code {
	return -Code(int32(a) | int32(b)<<8 | int32(c)<<16 | int32(d)<<24)
}

var (
	BSFNotFound      = tag(0xF8, 'B', 'S', 'F')
	Bug              = tag('B', 'U', 'G', '!')
	BufferTooSmall   = tag('B', 'U', 'F', 'S')
	DecoderNotFound  = tag(0xF8, 'D', 'E', 'C')
	DemuxerNotFound  = tag(0xF8, 'D', 'E', 'M')
	EncoderNotFound  = tag(0xF8, 'E', 'N', 'C')
	EOF              = tag('E', 'O', 'F', ' ')
	Exit             = tag('E', 'X', 'I', 'T')
	External         = tag('E', 'X', 'T', ' ')
	FilterNotFound   = tag(0xF8, 'F', 'I', 'L')
	InvalidData      = tag('I', 'N', 'D', 'A')
	MuxerNotFound    = tag(0xF8, 'M', 'U', 'X')
	OptionNotFound   = tag(0xF8, 'O', 'P', 'T')
	PatchWelcome     = tag('P', 'A', 'W', 'E')
	ProtocolNotFound = tag(0xF8, 'P', 'R', 'O')
	StreamNotFound   = tag(0xF8, 'S', 'T', 'R')
	Unknown          = tag('U', 'N', 'K', 'N')

	EAGAIN = Code(-int(syscall.EAGAIN))
	EINVAL = Code(-int(syscall.EINVAL))
	ENOMEM = Code(-int(syscall.ENOMEM))
)

var tagStrings = map[Code]string{
	BSFNotFound:      "Bitstream filter not found",
	Bug:              "Internal bug, should not have happened",
	BufferTooSmall:   "Buffer too small",
	DecoderNotFound:  "Decoder not found",
	DemuxerNotFound:  "Demuxer not found",
	EncoderNotFound:  "Encoder not found",
	EOF:              "End of file",
	Exit:             "Immediate exit requested",
	External:         "Generic error in an external library",
	FilterNotFound:   "Filter not found",
	InvalidData:      "Invalid data found when processing input",
	MuxerNotFound:    "Muxer not found",
	OptionNotFound:   "Option not found",
	PatchWelcome:     "Not yet implemented in FFmpeg, patches welcome",
	ProtocolNotFound: "Protocol not found",
	StreamNotFound:   "Stream not found",
	Unknown:          "Unknown error occurred",
}

// ErrorString returns the message for code, truncated to MaxStringSize-1
// bytes. Tags come from the library's table, negated errnos from the
// system's, anything else reads "Error number N occurred".
func ErrorString(code Code) string {
	msg, ok := tagStrings[code]
	if !ok {
		msg, ok = errnoString(code)
	}
	if !ok {
		msg = fmt.Sprintf("Error number %d occurred", int(code))
	}
	if len(msg) > MaxStringSize-1 {
		msg = msg[:MaxStringSize-1]
	}
	return msg
}

func errnoString(code Code) (string, bool) {
	if code == 0 {
		return "Success", true
	}
	if code > 0 {
		return "", false
	}
	msg := syscall.Errno(-code).Error()
	if msg == "" || strings.HasPrefix(msg, "errno ") {
		return "", false
	}
	// libc capitalises its messages, Go's table does not
	return strings.ToUpper(msg[:1]) + msg[1:], true
}

// PrintError writes the code and its message to w in the demo's format.
func PrintError(w io.Writer, code Code) {
	_, _ = fmt.Fprintf(w, "Error occurred: code: %d, string: %s\n", int(code), ErrorString(code))
}

func (c Code) Error() string {
	return ErrorString(c)
}

// IsError reports whether c signals a failure.
func (c Code) IsError() bool {
	return c < 0
}
