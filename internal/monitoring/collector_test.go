package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector(3)

	c.LocationScraped()
	c.LocationScraped()
	c.LocationFailed()
	c.PlacesScraped(12)
	c.PlacesScraped(5)
	c.PlacesSkipped(1)
	c.DriverRestarted()

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.LocationsTotal)
	assert.Equal(t, 2, snap.LocationsScraped)
	assert.Equal(t, 1, snap.LocationsFailed)
	assert.Equal(t, 17, snap.PlacesScraped)
	assert.Equal(t, 1, snap.PlacesSkipped)
	assert.Equal(t, 1, snap.DriverRestarts)
	assert.GreaterOrEqual(t, snap.ElapsedSeconds, 0.0)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollector(1)
	snap := c.Snapshot()
	c.PlacesScraped(4)
	assert.Equal(t, 0, snap.PlacesScraped)
	assert.Equal(t, 4, c.Snapshot().PlacesScraped)
}
