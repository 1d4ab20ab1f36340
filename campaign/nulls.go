package campaign

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"time"

	"github.com/relloyd/campaignpipe/constants"
)

// NullFloat is a float64 that may be null.
// It is written to CSV as an empty field when null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func FloatOf(f float64) NullFloat {
	return NullFloat{Float64: f, Valid: true}
}

func (n NullFloat) MarshalText() ([]byte, error) {
	if !n.Valid {
		return []byte{}, nil
	}
	return []byte(strconv.FormatFloat(n.Float64, 'f', -1, 64)), nil
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// Value implements driver.Valuer.
func (n NullFloat) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}

// NullInt is an int64 that may be null.
type NullInt struct {
	Int64 int64
	Valid bool
}

func IntOf(i int64) NullInt {
	return NullInt{Int64: i, Valid: true}
}

func (n NullInt) MarshalText() ([]byte, error) {
	if !n.Valid {
		return []byte{}, nil
	}
	return []byte(strconv.FormatInt(n.Int64, 10)), nil
}

func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int64)
}

// Value implements driver.Valuer.
func (n NullInt) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Int64, nil
}

// NullDate is a calendar date that may be null.
// The time component is always midnight UTC.
type NullDate struct {
	Time  time.Time
	Valid bool
}

func DateOf(t time.Time) NullDate {
	return NullDate{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func (n NullDate) String() string {
	if !n.Valid {
		return ""
	}
	return n.Time.Format(constants.DateFormat)
}

func (n NullDate) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n NullDate) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String())
}

// Value implements driver.Valuer.
func (n NullDate) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time, nil
}
