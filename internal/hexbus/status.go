// internal/hexbus/status.go
package hexbus

import "fmt"

// Status is the application-level result byte that ends most responses.
// These values are protocol-defined and MUST NOT change.
type Status uint8

const (
	StatusSuccess         Status = 0
	StatusOptionErr       Status = 1
	StatusAttrErr         Status = 2
	StatusFileNotFound    Status = 3
	StatusNotOpen         Status = 4
	StatusAlreadyOpen     Status = 5
	StatusDeviceErr       Status = 6
	StatusEOF             Status = 7
	StatusTooLong         Status = 8
	StatusWPErr           Status = 9
	StatusNotRequest      Status = 10
	StatusDirFull         Status = 11
	StatusBufSizeErr      Status = 12
	StatusUnsupportedCmd  Status = 13
	StatusNotWrite        Status = 14
	StatusNotRead         Status = 15
	StatusDataErr         Status = 16
	StatusFileTypeErr     Status = 17
	StatusFileProtErr     Status = 18
	StatusAppendModeErr   Status = 19
	StatusOutputModeErr   Status = 20
	StatusInputModeErr    Status = 21
	StatusUpdateModeErr   Status = 22
	StatusFileTypeIntErr  Status = 23
	StatusVerifyErr       Status = 24
	StatusLowBattErr      Status = 25
	StatusUninitMedia     Status = 26
	StatusMediaFull       Status = 27
	StatusDataInvalid     Status = 28
	StatusFileNameInvalid Status = 29
	StatusMaxLUNs         Status = 30
)

var statusNames = map[Status]string{
	StatusSuccess:         "success",
	StatusOptionErr:       "option error",
	StatusAttrErr:         "attribute error",
	StatusFileNotFound:    "file not found",
	StatusNotOpen:         "not open",
	StatusAlreadyOpen:     "already open",
	StatusDeviceErr:       "device error",
	StatusEOF:             "end of file",
	StatusTooLong:         "too long",
	StatusWPErr:           "write protected",
	StatusNotRequest:      "not requested",
	StatusDirFull:         "directory full",
	StatusBufSizeErr:      "buffer size error",
	StatusUnsupportedCmd:  "unsupported command",
	StatusNotWrite:        "not written",
	StatusNotRead:         "not read",
	StatusDataErr:         "data error",
	StatusFileTypeErr:     "file type error",
	StatusFileProtErr:     "file protected",
	StatusAppendModeErr:   "append mode error",
	StatusOutputModeErr:   "output mode error",
	StatusInputModeErr:    "input mode error",
	StatusUpdateModeErr:   "update mode error",
	StatusFileTypeIntErr:  "file type internal error",
	StatusVerifyErr:       "verify error",
	StatusLowBattErr:      "low battery",
	StatusUninitMedia:     "uninitialized media",
	StatusMediaFull:       "media full",
	StatusDataInvalid:     "data invalid",
	StatusFileNameInvalid: "file name invalid",
	StatusMaxLUNs:         "max LUNs",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}
