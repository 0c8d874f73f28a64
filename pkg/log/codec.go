package log

import (
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileExtension is the conventional extension for capture files.
const FileExtension = ".rlog"

const (
	captureMagic   = "RWSLOG"
	captureVersion = 1
)

// Capture file errors.
var (
	ErrNotCapture         = errors.New("not an rws capture file")
	ErrUnsupportedVersion = errors.New("unsupported capture version")
)

// fileHeader is the first CBOR item of every capture file. Its keys stay
// clear of Event's so a header never decodes as an event or vice versa.
type fileHeader struct {
	Magic   string    `cbor:"100,keyasint"`
	Version uint      `cbor:"101,keyasint"`
	Created time.Time `cbor:"102,keyasint"`
}

// Events are encoded canonically with RFC 3339 nanosecond timestamps, so
// identical events always produce identical bytes.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic("log: capture encoder options: " + err.Error())
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic("log: capture decoder options: " + err.Error())
	}
	return dm
}

// EncodeEvent returns the CBOR form of event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent parses one CBOR-encoded event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := decMode.Unmarshal(data, &event)
	return event, err
}
