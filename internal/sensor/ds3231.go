package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DS3231Addr is the fixed I2C address of the DS3231.
const DS3231Addr = 0x68

const (
	rtcRegSeconds = 0x00

	rtcHour12   = 0x40
	rtcHourPM   = 0x20
	rtcCentury  = 0x80
	rtcRegCount = 7
)

// DS3231 is a Maxim real-time clock. It keeps local wall time, so the
// location the office runs in must be supplied.
type DS3231 struct {
	dev i2c.Dev
	loc *time.Location
}

// NewDS3231 returns a clock reading the chip on bus. A nil loc means time.Local.
func NewDS3231(bus i2c.Bus, loc *time.Location) *DS3231 {
	if loc == nil {
		loc = time.Local
	}
	return &DS3231{dev: i2c.Dev{Bus: bus, Addr: DS3231Addr}, loc: loc}
}

// Now reads the time registers.
func (d *DS3231) Now() (time.Time, error) {
	buf := make([]byte, rtcRegCount)
	if err := d.dev.Tx([]byte{rtcRegSeconds}, buf); err != nil {
		return time.Time{}, fmt.Errorf("ds3231 read: %w", err)
	}
	return decodeTime(buf, d.loc)
}

// Set writes t (converted to the clock's location) in 24-hour mode.
func (d *DS3231) Set(t time.Time) error {
	t = t.In(d.loc)
	if t.Year() < 2000 || t.Year() > 2199 {
		return fmt.Errorf("ds3231: year %d out of range", t.Year())
	}
	w := append([]byte{rtcRegSeconds}, encodeTime(t)...)
	if err := d.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("ds3231 write: %w", err)
	}
	return nil
}

func decodeTime(b []byte, loc *time.Location) (time.Time, error) {
	if len(b) < rtcRegCount {
		return time.Time{}, fmt.Errorf("ds3231: short read (%d bytes)", len(b))
	}
	sec := fromBCD(b[0] & 0x7f)
	minute := fromBCD(b[1] & 0x7f)

	var hour int
	if b[2]&rtcHour12 != 0 {
		hour = fromBCD(b[2]&0x1f) % 12
		if b[2]&rtcHourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(b[2] & 0x3f)
	}

	day := fromBCD(b[4] & 0x3f)
	month := fromBCD(b[5] & 0x1f)
	year := 2000 + fromBCD(b[6])
	if b[5]&rtcCentury != 0 {
		year += 100
	}

	if sec > 59 || minute > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("ds3231: invalid time registers % x", b[:rtcRegCount])
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("ds3231: invalid date %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

// encodeTime produces the seven time registers. The day-of-week register
// uses 1 for Sunday; readers derive the weekday from the date instead.
func encodeTime(t time.Time) []byte {
	month := toBCD(int(t.Month()))
	year := t.Year() - 2000
	if year >= 100 {
		month |= rtcCentury
		year -= 100
	}
	return []byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		byte(t.Weekday()) + 1,
		toBCD(t.Day()),
		month,
		toBCD(year),
	}
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}

func toBCD(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}
