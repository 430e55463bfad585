// Package exif достаёт дату съёмки из фото профиля.
package exif

import (
	"bytes"
	"strings"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
)

const exifLayout = "2006:01:02 15:04:05"

// порядок важен: берём первый найденный тег
var dateFields = []goexif.FieldName{
	goexif.DateTimeOriginal,
	goexif.DateTime,
	goexif.DateTimeDigitized,
}

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// DateFromBytes возвращает дату из EXIF (UTC). Любая ошибка разбора - нет даты.
func (Reader) DateFromBytes(data []byte) (time.Time, bool) {
	if len(data) == 0 {
		return time.Time{}, false
	}

	x, err := goexif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return time.Time{}, false
	}

	for _, field := range dateFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		val = strings.TrimRight(val, "\x00 ")
		if val == "" {
			continue
		}
		ts, err := time.ParseInLocation(exifLayout, val, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}
