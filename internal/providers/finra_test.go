package providers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortVolFixture = `Date|Symbol|ShortVolume|ShortExemptVolume|TotalVolume|Market
20250114|ABCD|30000000|100000|80000000|B
20250114|ABCD|5000000|0|10000000|Q
20250114|WXYZ|1200|0|4800|B
20250114||999|0|999|B
20250114|BADN|oops|0|100|B
`

func TestParseShortVolumeFileAggregatesAcrossTapes(t *testing.T) {
	rows, err := parseShortVolumeFile(strings.NewReader(shortVolFixture), "2025-01-14")
	require.NoError(t, err)

	abcd := rows["ABCD"]
	require.NotNil(t, abcd)
	assert.Equal(t, 35_000_000.0, abcd.ShortVolume, "tapes sum, never deduplicate")
	assert.Equal(t, 90_000_000.0, abcd.TotalVolume)
	assert.Equal(t, "2025-01-14", abcd.Date)

	wxyz := rows["WXYZ"]
	require.NotNil(t, wxyz)
	assert.Equal(t, 1200.0, wxyz.ShortVolume)

	// Blank symbols and unparseable volumes are skipped, not fatal.
	assert.NotContains(t, rows, "")
	assert.NotContains(t, rows, "BADN")
}

func TestParseShortVolumeFileEmptyIsError(t *testing.T) {
	_, err := parseShortVolumeFile(strings.NewReader("Date|Symbol|ShortVolume|ShortExemptVolume|TotalVolume|Market\n"), "2025-01-14")
	assert.Error(t, err)
}

func TestPrevTradingDaySkipsWeekends(t *testing.T) {
	mon := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	fri := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fri, prevTradingDay(mon), "Monday steps back to Friday")

	wed := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	tue := time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, tue, prevTradingDay(wed))

	sun := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fri, prevTradingDay(sun), "Sunday steps back to Friday")
}
