package wire

// Function numbers, grouped by command group (spec §4.1, §6.1). Only
// Connection Management, Directory Handling and File Access are
// interpreted; File Handling and Volume Access are parsed only far
// enough to NACK (spec §1).
const (
	// CGConnectionManagement
	FnGetFSPropertiesReq  byte = 0x00
	FnGetFSPropertiesResp byte = 0x01
	FnVolumeStatusReq     byte = 0x02
	FnVolumeStatusResp    byte = 0x03
	FnFSStatus            byte = 0x04

	// CGDirectoryHandling
	FnChangeCurrentDirReq  byte = 0x00
	FnChangeCurrentDirResp byte = 0x01
	FnGetCurrentDirReq     byte = 0x02
	FnGetCurrentDirResp    byte = 0x03

	// CGFileAccess (shared by files and directories, per §4.8)
	FnOpenFileReq  byte = 0x00
	FnOpenFileResp byte = 0x01
	FnSeekFileReq  byte = 0x02
	FnSeekFileResp byte = 0x03
	FnReadFileReq  byte = 0x04
	FnReadFileResp byte = 0x05
	FnCloseFileReq byte = 0x06
	FnCloseFileResp byte = 0x07
	FnWriteFileReq  byte = 0x08 // wire layout exists; server always rejects (spec §1 Non-goals)
	FnWriteFileResp byte = 0x09
)

// OpenFlags bits (spec §4.8).
const (
	OpenAccessMask      byte = 0x03
	OpenAccessReadOnly  byte = 0x00
	OpenAccessWriteOnly byte = 0x01
	OpenAccessReadWrite byte = 0x02
	OpenAccessReserved  byte = 0x03

	OpenFlagAppend    byte = 0x04
	OpenFlagDirectory byte = 0x10
	OpenFlagCreate    byte = 0x20
)

// SeekMode selects the reference point for a seek request (spec §4.8).
type SeekMode byte

const (
	SeekSet SeekMode = 0
	SeekCur SeekMode = 1
	SeekEnd SeekMode = 2
)

// VolumeStatusMode distinguishes a status query from a prepare-to-
// disconnect notification (spec §4.5, §4.8, §9 open question about the
// "current directory is not set" predicate).
type VolumeStatusMode byte

const (
	VolumeStatusQuery           VolumeStatusMode = 0
	VolumeStatusPrepareToDisconnect VolumeStatusMode = 1
)
