package exif

import (
	"cmp"
	"encoding/binary"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	tagDateTime          = 0x0132
	tagExifIFDPointer    = 0x8769
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004
)

// tiffEntry ASCII-тег (значение длиннее 4 байт, лежит в области данных) или LONG
type tiffEntry struct {
	tag   uint16
	ascii string
	long  uint32
}

// buildTIFF little-endian TIFF: IFD0, за ним Exif sub-IFD (если есть), затем значения строк
func buildTIFF(ifd0, exifIFD []tiffEntry) []byte {
	ifd0 = slices.Clone(ifd0)
	exifIFD = slices.Clone(exifIFD)

	subOff := uint32(8 + 2 + 12*len(ifd0) + 4)
	dataOff := subOff
	if len(exifIFD) > 0 {
		subOff += 12
		dataOff = subOff + uint32(2+12*len(exifIFD)+4)
		ifd0 = append(ifd0, tiffEntry{tag: tagExifIFDPointer, long: subOff})
	}

	buf := []byte{'I', 'I', 0x2A, 0x00}
	buf = binary.LittleEndian.AppendUint32(buf, 8)

	var data []byte
	buf = appendIFD(buf, ifd0, &data, dataOff)
	if len(exifIFD) > 0 {
		buf = appendIFD(buf, exifIFD, &data, dataOff)
	}
	return append(buf, data...)
}

func appendIFD(buf []byte, entries []tiffEntry, data *[]byte, dataOff uint32) []byte {
	slices.SortFunc(entries, func(a, b tiffEntry) int { return cmp.Compare(a.tag, b.tag) })

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, e.tag)
		if e.ascii == "" {
			buf = binary.LittleEndian.AppendUint16(buf, 4) // LONG
			buf = binary.LittleEndian.AppendUint32(buf, 1)
			buf = binary.LittleEndian.AppendUint32(buf, e.long)
			continue
		}
		val := append([]byte(e.ascii), 0)
		buf = binary.LittleEndian.AppendUint16(buf, 2) // ASCII
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(val)))
		buf = binary.LittleEndian.AppendUint32(buf, dataOff+uint32(len(*data)))
		*data = append(*data, val...)
	}
	return binary.LittleEndian.AppendUint32(buf, 0)
}

// tiffWithDateTime минимальный TIFF с одним тегом DateTime
func tiffWithDateTime(value string) []byte {
	return buildTIFF([]tiffEntry{{tag: tagDateTime, ascii: value}}, nil)
}

func TestDateFromBytes_DateTime(t *testing.T) {
	ts, ok := NewReader().DateFromBytes(tiffWithDateTime("2014:05:06 07:08:09"))
	assert.True(t, ok)
	assert.Equal(t, time.Date(2014, 5, 6, 7, 8, 9, 0, time.UTC), ts)
}

func TestDateFromBytes_Garbage(t *testing.T) {
	r := NewReader()

	_, ok := r.DateFromBytes(nil)
	assert.False(t, ok)

	_, ok = r.DateFromBytes([]byte("definitely not an image"))
	assert.False(t, ok)

	// JPEG без APP1/EXIF
	_, ok = r.DateFromBytes([]byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x43, 0x00, 0xFF, 0xD9})
	assert.False(t, ok)
}

func TestDateFromBytes_BadValue(t *testing.T) {
	_, ok := NewReader().DateFromBytes(tiffWithDateTime("yesterday at noon!!"))
	assert.False(t, ok)
}

func TestDateFromBytes_TagOrder(t *testing.T) {
	tests := []struct {
		name    string
		ifd0    []tiffEntry
		exifIFD []tiffEntry
		want    time.Time
	}{
		{
			name:    "original wins over DateTime",
			ifd0:    []tiffEntry{{tag: tagDateTime, ascii: "2021:12:31 23:59:59"}},
			exifIFD: []tiffEntry{{tag: tagDateTimeOriginal, ascii: "2013:02:03 04:05:06"}},
			want:    time.Date(2013, 2, 3, 4, 5, 6, 0, time.UTC),
		},
		{
			name: "original wins over digitized",
			ifd0: []tiffEntry{{tag: tagDateTime, ascii: "2021:12:31 23:59:59"}},
			exifIFD: []tiffEntry{
				{tag: tagDateTimeDigitized, ascii: "2019:01:01 00:00:00"},
				{tag: tagDateTimeOriginal, ascii: "2013:02:03 04:05:06"},
			},
			want: time.Date(2013, 2, 3, 4, 5, 6, 0, time.UTC),
		},
		{
			name:    "DateTime wins over digitized",
			ifd0:    []tiffEntry{{tag: tagDateTime, ascii: "2016:07:08 09:10:11"}},
			exifIFD: []tiffEntry{{tag: tagDateTimeDigitized, ascii: "2012:01:01 00:00:00"}},
			want:    time.Date(2016, 7, 8, 9, 10, 11, 0, time.UTC),
		},
		{
			name:    "digitized only",
			exifIFD: []tiffEntry{{tag: tagDateTimeDigitized, ascii: "2012:01:01 12:00:00"}},
			want:    time.Date(2012, 1, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := NewReader().DateFromBytes(buildTIFF(tt.ifd0, tt.exifIFD))
			assert.True(t, ok)
			assert.Equal(t, tt.want, ts)
		})
	}
}
