// Package isoerrors holds the ISO 11783-13 Annex B.9 wire error codes and
// the error-kind taxonomy from spec §7, grounded on the Cause()-chasing
// classifier shape of the teacher's fs/fserrors package.
package isoerrors

// Code is a 1-byte ISO 11783-13 Annex B.9 error code, carried in every
// response frame.
type Code byte

const (
	CodeSuccess               Code = 0
	CodeAccessDenied          Code = 1
	CodeInvalidAccess         Code = 2
	CodeTooManyFilesOpen      Code = 3
	CodeFileOrPathNotFound    Code = 4
	CodeInvalidHandle         Code = 5
	CodeInvalidSourceName     Code = 6
	CodeInvalidDestName       Code = 7
	CodeNoSpace               Code = 8
	CodeWriteFailure          Code = 9
	CodeNoMedia               Code = 10
	CodeReadFailure           Code = 11
	CodeUnsupported           Code = 12
	CodeVolumeNotInitialized  Code = 13
	CodeInvalidLength         Code = 42
	CodeOutOfMemory           Code = 43
	CodeOther                 Code = 44
	CodeEndOfFile             Code = 45
	CodeTANError              Code = 46
	CodeMalformed             Code = 47
)

var mnemonics = map[Code]string{
	CodeSuccess:              "SUCCESS",
	CodeAccessDenied:         "ACCESS_DENIED",
	CodeInvalidAccess:        "INVALID_ACCESS",
	CodeTooManyFilesOpen:     "TOO_MANY_FILES_OPEN",
	CodeFileOrPathNotFound:   "FILE_ORPATH_NOT_FOUND",
	CodeInvalidHandle:        "INVALID_HANDLE",
	CodeInvalidSourceName:    "INVALID_SOURCE_NAME",
	CodeInvalidDestName:      "INVALID_DEST_NAME",
	CodeNoSpace:              "NO_SPACE",
	CodeWriteFailure:         "WRITE_FAILURE",
	CodeNoMedia:              "NO_MEDIA",
	CodeReadFailure:          "READ_FAILURE",
	CodeUnsupported:          "UNSUPPORTED",
	CodeVolumeNotInitialized: "VOLUME_NOT_INITIALIZED",
	CodeInvalidLength:        "INVALID_LENGTH",
	CodeOutOfMemory:          "OUT_OF_MEMORY",
	CodeOther:                "OTHER",
	CodeEndOfFile:            "END_OF_FILE",
	CodeTANError:             "TAN_ERROR",
	CodeMalformed:            "MALFORMED",
}

// Mnemonic returns the ISO 11783-13 name for a code, or "" if unknown.
func (c Code) Mnemonic() string {
	return mnemonics[c]
}

func (c Code) String() string {
	if m, ok := mnemonics[c]; ok {
		return m
	}
	return "UNKNOWN"
}

// Ok reports whether c represents success.
func (c Code) Ok() bool { return c == CodeSuccess }
