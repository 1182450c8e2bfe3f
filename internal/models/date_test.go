package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFormats(t *testing.T) {
	d := NewDate(time.Date(2024, time.March, 5, 22, 30, 0, 0, time.UTC))

	assert.Equal(t, "05/03/2024", d.Stored())
	assert.Equal(t, "2024-03-05", d.Picker())
	assert.Equal(t, "", Date{}.Stored())
	assert.True(t, Date{}.IsZero())
}

func TestParseStoredDateUnpadded(t *testing.T) {
	d, err := ParseStoredDate("5/3/2024")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 5}, d)
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "2024-03-05", "31/02/2024", "01/13/2024", "1/1/24", "aa/bb/cccc"} {
		_, err := ParseStoredDate(s)
		assert.Error(t, err, s)
	}
	for _, s := range []string{"05/03/2024", "2024-02-30", "24-01-01"} {
		_, err := ParsePickerDate(s)
		assert.Error(t, err, s)
	}
}

func TestDateRoundTrip(t *testing.T) {
	for _, stored := range []string{"01/01/2000", "29/02/2024", "31/12/1999", "09/10/2023"} {
		picker, err := ToPickerFormat(stored)
		require.NoError(t, err)
		back, err := ToStoredFormat(picker)
		require.NoError(t, err)
		assert.Equal(t, stored, back)
	}

	for _, picker := range []string{"2000-01-01", "2024-02-29", "2023-10-09"} {
		stored, err := ToStoredFormat(picker)
		require.NoError(t, err)
		back, err := ToPickerFormat(stored)
		require.NoError(t, err)
		assert.Equal(t, picker, back)
	}
}

func TestDateConversionEmpty(t *testing.T) {
	s, err := ToPickerFormat("")
	require.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = ToStoredFormat("  ")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestDateCompare(t *testing.T) {
	a := Date{Year: 2024, Month: time.January, Day: 31}
	b := Date{Year: 2024, Month: time.February, Day: 1}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, Date{}.Compare(a), "zero date sorts first")
}
