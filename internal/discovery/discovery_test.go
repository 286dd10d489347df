package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placetimes/internal/browser"
)

// feedDriver fakes a results feed that grows by growth entries per scroll.
type feedDriver struct {
	browser.Driver

	entries   []browser.Entry
	growth    int
	maxSize   int
	scrolls   int
	scrollErr error
	listErr   error
}

func (d *feedDriver) ScrollFeed(context.Context) error {
	if d.scrollErr != nil {
		return d.scrollErr
	}
	d.scrolls++
	for i := 0; i < d.growth && len(d.entries) < d.maxSize; i++ {
		n := len(d.entries)
		d.entries = append(d.entries, browser.Entry{
			Name: fmt.Sprintf("Place %d", n),
			Link: fmt.Sprintf("https://maps.example.com/place/%d/@39.9,-75.1", n),
		})
	}
	return nil
}

func (d *feedDriver) FeedEntries(context.Context) ([]browser.Entry, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	out := make([]browser.Entry, len(d.entries))
	copy(out, d.entries)
	return out, nil
}

func TestPlacesStopsAtTarget(t *testing.T) {
	drv := &feedDriver{growth: 50, maxSize: 500}

	entries, err := Places(context.Background(), drv, Options{TargetPlaces: 120, MaxScrolls: 10})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 120)
	assert.Equal(t, 3, drv.scrolls, "stop scrolling once the target is reached")
}

func TestPlacesExhaustsScrollBudget(t *testing.T) {
	drv := &feedDriver{growth: 5, maxSize: 30}

	entries, err := Places(context.Background(), drv, Options{TargetPlaces: 120, MaxScrolls: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 30, "a short feed still returns what was found")
	assert.Equal(t, 10, drv.scrolls)
}

func TestPlacesNoResults(t *testing.T) {
	drv := &feedDriver{growth: 0, maxSize: 0}

	_, err := Places(context.Background(), drv, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoResults))
}

func TestPlacesMissingFeedIsNoResults(t *testing.T) {
	drv := &feedDriver{scrollErr: eris.Wrap(browser.ErrElementNotFound, "results feed")}

	_, err := Places(context.Background(), drv, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoResults), "missing feed falls back like an empty one")
}

func TestPlacesPropagatesDriverErrors(t *testing.T) {
	boom := eris.New("websocket: close 1006")
	drv := &feedDriver{growth: 5, maxSize: 30, listErr: boom}

	_, err := Places(context.Background(), drv, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))
	assert.False(t, eris.Is(err, ErrNoResults))
}

func TestPlacesHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	drv := &feedDriver{growth: 5, maxSize: 30}
	_, err := Places(ctx, drv, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
	assert.Equal(t, 0, drv.scrolls)
}
