// Package nmea reads position fixes from a GPS receiver that speaks NMEA 0183
// over a serial port.
package nmea

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrChecksum  = errors.New("nmea: checksum mismatch")
	ErrNotRMC    = errors.New("nmea: not an RMC sentence")
	ErrMalformed = errors.New("nmea: malformed sentence")
)

// Fix is a parsed RMC sentence. Valid is false when the receiver flags the
// data as void.
type Fix struct {
	Lat   float64
	Lon   float64
	Time  time.Time
	Valid bool
}

// ParseRMC parses a $GPRMC/$GNRMC style sentence, checking its checksum when
// present.
func ParseRMC(line string) (Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, ErrMalformed
	}
	body := line[1:]
	if star := strings.IndexByte(body, '*'); star >= 0 {
		want, err := strconv.ParseUint(body[star+1:], 16, 8)
		if err != nil {
			return Fix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		body = body[:star]
		if checksum(body) != byte(want) {
			return Fix{}, ErrChecksum
		}
	}

	fields := strings.Split(body, ",")
	if len(fields[0]) != 5 || fields[0][2:] != "RMC" {
		return Fix{}, ErrNotRMC
	}
	if len(fields) < 10 {
		return Fix{}, ErrMalformed
	}

	fix := Fix{Valid: fields[2] == "A"}
	if !fix.Valid {
		return fix, nil
	}

	lat, err := coordinate(fields[3], fields[4], 2)
	if err != nil {
		return Fix{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := coordinate(fields[5], fields[6], 3)
	if err != nil {
		return Fix{}, fmt.Errorf("longitude: %w", err)
	}
	fix.Lat, fix.Lon = lat, lon

	if ts, err := fixTime(fields[1], fields[9]); err == nil {
		fix.Time = ts
	}
	return fix, nil
}

func checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// coordinate converts a ddmm.mmmm (or dddmm.mmmm) value and hemisphere to
// signed decimal degrees.
func coordinate(value, hemi string, degDigits int) (float64, error) {
	if len(value) < degDigits+2 {
		return 0, ErrMalformed
	}
	deg, err := strconv.ParseFloat(value[:degDigits], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	minutes, err := strconv.ParseFloat(value[degDigits:], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	v := deg + minutes/60
	switch hemi {
	case "N", "E":
	case "S", "W":
		v = -v
	default:
		return 0, ErrMalformed
	}
	return v, nil
}

func fixTime(hms, dmy string) (time.Time, error) {
	if len(hms) > 6 {
		hms = hms[:6]
	}
	return time.ParseInLocation("150405 020106", hms+" "+dmy, time.UTC)
}
