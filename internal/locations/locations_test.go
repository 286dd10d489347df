package locations

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndPending(t *testing.T) {
	path := writeCSV(t, `name,n_places,scraped_at
Rittenhouse Square,,
Reading Terminal Market,23,2026-08-29 10:00:00
  Rittenhouse Square  ,,
Love Park,,
nan,,
,,
`)

	list, err := Load(path)
	require.NoError(t, err)
	require.Len(t, list.Rows, 6)

	pending := list.Pending()
	assert.Equal(t, []string{"Rittenhouse Square", "Love Park"}, pending,
		"processed, duplicate, nan and blank rows are filtered")
}

func TestPendingWithoutProgressColumns(t *testing.T) {
	path := writeCSV(t, "name\nFishtown\nFishtown\nManayunk\n")

	list, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fishtown", "Manayunk"}, list.Pending())
}

func TestMarkScrapedAndSaveRoundTrip(t *testing.T) {
	path := writeCSV(t, `name,n_places,scraped_at
Love Park,,
Fishtown,,
`)

	list, err := Load(path)
	require.NoError(t, err)

	at := time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)
	list.MarkScraped("Love Park", 17, at)
	require.NoError(t, list.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Rows, 2)

	require.NotNil(t, reloaded.Rows[0].NPlaces)
	assert.Equal(t, 17, *reloaded.Rows[0].NPlaces)
	assert.Equal(t, "2026-08-30 12:30:00", reloaded.Rows[0].ScrapedAt)
	assert.Nil(t, reloaded.Rows[1].NPlaces)

	// A marked row no longer shows up as pending.
	assert.Equal(t, []string{"Fishtown"}, reloaded.Pending())
}

func TestMarkScrapedMatchesAllDuplicates(t *testing.T) {
	path := writeCSV(t, "name\nLove Park\nLove Park \n")

	list, err := Load(path)
	require.NoError(t, err)

	list.MarkScraped("Love Park", 5, time.Now())
	for i := range list.Rows {
		require.NotNil(t, list.Rows[i].NPlaces, "row %d", i)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestSkipLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skipped.log")
	log := NewSkipLog(path)

	require.NoError(t, log.Append("Broken Cafe"))
	require.NoError(t, log.Append("Vanished Venue"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Broken Cafe\nVanished Venue\n", string(data))
}
