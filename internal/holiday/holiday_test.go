package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSHolidays(t *testing.T) {
	c, err := New(" US ")
	require.NoError(t, err)
	assert.Equal(t, "us", c.Region())

	f := c.Features(
		time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
	)

	assert.Equal(t, "Independence Day", f.Holiday["2024-07-04"])
	assert.Equal(t, "Christmas Day", f.Holiday["2024-12-25"])
	assert.NotEmpty(t, f.Holiday["2024-11-28"], "thanksgiving")
	assert.Empty(t, f.Holiday["2024-07-05"])
	assert.Empty(t, f.Active)
	assert.Empty(t, f.Note)
}

func TestUnknownRegion(t *testing.T) {
	_, err := New("atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "us")

	assert.True(t, Supported(""))
	assert.True(t, Supported("US"))
	assert.False(t, Supported("atlantis"))
	assert.Equal(t, []string{"us"}, Regions())
}
