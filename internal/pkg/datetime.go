package pkg

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout 与现有客户端约定的时间格式，服务器本地时区，不带偏移
const DateTimeLayout = "2006-01-02 15:04:05"

type DateTime time.Time

func NewDateTime(t time.Time) DateTime {
	return DateTime(t)
}

func NewDateTimePtr(t *time.Time) *DateTime {
	if t == nil {
		return nil
	}
	d := DateTime(*t)
	return &d
}

func (d DateTime) Time() time.Time {
	return time.Time(d)
}

func (d DateTime) String() string {
	return time.Time(d).In(time.Local).Format(DateTimeLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return fmt.Errorf("%w: empty time, want %s", ErrInvalidRequest, DateTimeLayout)
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = DateTime(t)
	return nil
}

func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q, want %s", ErrInvalidRequest, s, DateTimeLayout)
	}
	return t, nil
}

// ParseOptionalDateTime 空串表示该侧不设边界
func ParseOptionalDateTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
