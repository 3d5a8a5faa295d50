package wire

import "time"

// Attribute bits for a directory entry record (spec §4.1).
const (
	AttrReadOnly  byte = 0x01
	AttrHidden    byte = 0x02
	AttrVolume    byte = 0x08
	AttrDirectory byte = 0x10
	AttrLongName  byte = 0x40
)

// DirEntry is one decoded directory-entry record: filename, attribute
// bitfield, modification time, and size.
type DirEntry struct {
	Name  string
	Attr  byte
	MTime time.Time
	Size  uint32
}

// IsDir reports whether the entry's attribute bitfield marks it a
// directory.
func (d DirEntry) IsDir() bool { return d.Attr&AttrDirectory != 0 }

// FATDate packs a time.Time's date as ((year-1980)<<9)|(month<<5)|day.
func FATDate(t time.Time) uint16 {
	y := t.Year() - 1980
	if y < 0 {
		y = 0
	}
	return uint16(y)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
}

// FATTime packs a time.Time's time as (hour<<11)|(minute<<5)|(sec/2).
func FATTime(t time.Time) uint16 {
	return uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
}

// FATToTime reconstructs a time.Time from a FAT date/time pair. Seconds
// are recovered to the nearest even second, matching the 2-second FAT
// resolution.
func FATToTime(date, clock uint16) time.Time {
	year := 1980 + int(date>>9)
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	hour := int(clock >> 11)
	minute := int((clock >> 5) & 0x3F)
	sec := int(clock&0x1F) * 2
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
}

// EncodeDirEntry appends one directory-entry record: 1 byte name
// length, name bytes, 1 byte attributes, 2 bytes FAT date, 2 bytes FAT
// time, 4 bytes size (spec §4.1).
func EncodeDirEntry(w *Buffer, e DirEntry) {
	name := []byte(e.Name)
	if len(name) > 255 {
		name = name[:255]
	}
	w.Byte(byte(len(name)))
	w.Bytes(name)
	w.Byte(e.Attr)
	w.Uint16(FATDate(e.MTime))
	w.Uint16(FATTime(e.MTime))
	w.Uint32(e.Size)
}

// DirEntrySize returns the on-wire size of e, without encoding it.
func DirEntrySize(e DirEntry) int {
	n := len(e.Name)
	if n > 255 {
		n = 255
	}
	return 1 + n + 1 + 2 + 2 + 4
}

// DecodeDirEntry reads one directory-entry record.
func DecodeDirEntry(r *Reader) DirEntry {
	n := r.Byte()
	name := r.Bytes(int(n))
	attr := r.Byte()
	date := r.Uint16()
	clock := r.Uint16()
	size := r.Uint32()
	if r.Err() != nil {
		return DirEntry{}
	}
	return DirEntry{
		Name:  string(name),
		Attr:  attr,
		MTime: FATToTime(date, clock),
		Size:  size,
	}
}
