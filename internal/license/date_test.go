package license

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"plain day", "20240115", MustDate(2024, time.January, 15), false},
		{"leap day", "20240229", MustDate(2024, time.February, 29), false},
		{"year end", "20301231", MustDate(2030, time.December, 31), false},
		{"non leap year", "20230229", Date{}, true},
		{"month 13", "20241301", Date{}, true},
		{"day zero", "20240100", Date{}, true},
		{"april 31", "20240431", Date{}, true},
		{"dashed", "2024-01-1", Date{}, true},
		{"too short", "2024011", Date{}, true},
		{"too long", "202401151", Date{}, true},
		{"letters", "2024ab15", Date{}, true},
		{"signed", "+2024011", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	start := MustDate(2023, time.December, 25)
	for i := 0; i < 500; i++ {
		d := DateOf(start.Time().AddDate(0, 0, i))
		parsed, err := ParseDate(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
		assert.Len(t, d.String(), 8)
	}
}

func TestNewDate(t *testing.T) {
	_, err := NewDate(2024, time.February, 30)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewDate(10000, time.January, 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	d, err := NewDate(2024, time.March, 1)
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 1, d.Day())

	assert.Panics(t, func() { MustDate(2024, time.April, 31) })
}

func TestDateOrdering(t *testing.T) {
	a := MustDate(2024, time.January, 31)
	b := MustDate(2024, time.February, 1)
	c := MustDate(2025, time.January, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.True(t, c.After(a))
	assert.False(t, a.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, a.BeforeOrEqual(b))
	assert.False(t, c.BeforeOrEqual(b))
	assert.True(t, a.Equal(MustDate(2024, time.January, 31)))
}

func TestDateOfUsesLocation(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	late := time.Date(2024, time.January, 1, 23, 30, 0, 0, zone)

	assert.Equal(t, MustDate(2024, time.January, 1), DateOf(late))
	assert.Equal(t, MustDate(2024, time.January, 2), DateOf(late.UTC()))
}

func TestDateText(t *testing.T) {
	type wrapper struct {
		Expires Date `json:"expires"`
	}

	data, err := json.Marshal(wrapper{Expires: MustDate(2030, time.January, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expires":"20300101"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, MustDate(2030, time.January, 1), w.Expires)

	assert.Error(t, json.Unmarshal([]byte(`{"expires":"20300230"}`), &w))

	_, err = json.Marshal(wrapper{})
	assert.Error(t, err)
}
