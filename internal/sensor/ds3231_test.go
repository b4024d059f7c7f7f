package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func readOp(regs ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: DS3231Addr, W: []byte{rtcRegSeconds}, R: regs}
}

func TestDS3231Now24Hour(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{readOp(0x15, 0x30, 0x07, 0x02, 0x05, 0x01, 0x26)},
		DontPanic: true,
	}
	rtc := NewDS3231(bus, time.UTC)

	got, err := rtc.Now()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 5, 7, 30, 15, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())
	require.NoError(t, bus.Close())
}

func TestDS3231Now12Hour(t *testing.T) {
	tests := []struct {
		name string
		hour byte
		want int
	}{
		{"8 PM", 0x40 | 0x20 | 0x08, 20},
		{"8 AM", 0x40 | 0x08, 8},
		{"12 AM", 0x40 | 0x12, 0},
		{"12 PM", 0x40 | 0x20 | 0x12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &i2ctest.Playback{
				Ops:       []i2ctest.IO{readOp(0x00, 0x45, tt.hour, 0x02, 0x05, 0x01, 0x26)},
				DontPanic: true,
			}
			got, err := NewDS3231(bus, time.UTC).Now()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Hour())
			assert.Equal(t, 45, got.Minute())
		})
	}
}

func TestDS3231NowCentury(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{readOp(0x00, 0x00, 0x00, 0x01, 0x01, 0x80|0x01, 0x00)},
		DontPanic: true,
	}
	got, err := NewDS3231(bus, time.UTC).Now()
	require.NoError(t, err)
	assert.Equal(t, 2100, got.Year())
}

func TestDS3231NowUsesLocation(t *testing.T) {
	loc := time.FixedZone("CET", 60*60)
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{readOp(0x00, 0x30, 0x07, 0x02, 0x05, 0x01, 0x26)},
		DontPanic: true,
	}
	got, err := NewDS3231(bus, loc).Now()
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 7, got.Hour())
}

func TestDS3231NowInvalidRegisters(t *testing.T) {
	tests := []struct {
		name string
		regs []byte
	}{
		{"minute 60", []byte{0x00, 0x60, 0x07, 0x02, 0x05, 0x01, 0x26}},
		{"hour 24", []byte{0x00, 0x00, 0x24, 0x02, 0x05, 0x01, 0x26}},
		{"month 13", []byte{0x00, 0x00, 0x07, 0x02, 0x05, 0x13, 0x26}},
		{"day 0", []byte{0x00, 0x00, 0x07, 0x02, 0x00, 0x01, 0x26}},
		{"february 30", []byte{0x00, 0x00, 0x07, 0x02, 0x30, 0x02, 0x26}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &i2ctest.Playback{Ops: []i2ctest.IO{readOp(tt.regs...)}, DontPanic: true}
			_, err := NewDS3231(bus, time.UTC).Now()
			assert.Error(t, err)
		})
	}
}

func TestDS3231NowBusError(t *testing.T) {
	// No scripted operations: the playback bus fails the transaction.
	bus := &i2ctest.Playback{DontPanic: true}
	_, err := NewDS3231(bus, time.UTC).Now()
	assert.Error(t, err)
}

func TestDS3231Set(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{
			Addr: DS3231Addr,
			W:    []byte{rtcRegSeconds, 0x15, 0x30, 0x07, 0x02, 0x05, 0x01, 0x26},
		}},
		DontPanic: true,
	}
	rtc := NewDS3231(bus, time.UTC)

	require.NoError(t, rtc.Set(time.Date(2026, 1, 5, 7, 30, 15, 0, time.UTC)))
	require.NoError(t, bus.Close())
}

func TestDS3231SetRejectsYear(t *testing.T) {
	rtc := NewDS3231(&i2ctest.Playback{DontPanic: true}, time.UTC)
	assert.Error(t, rtc.Set(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestBCD(t *testing.T) {
	for n := 0; n < 100; n++ {
		assert.Equal(t, n, fromBCD(toBCD(n)))
	}
	assert.Equal(t, byte(0x59), toBCD(59))
}
