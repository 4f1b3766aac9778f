package cache

import (
	"context"
	"testing"

	"gazetteer-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "search:city:london:10", Key("london", models.TypeCity, 10, nil))
	assert.Equal(t, "search:any:paris:5:48.8534:2.3488",
		Key("paris", models.TypeAny, 5, &models.Point{Lat: 48.85341, Lon: 2.3488}))

	// distinct parameters never collide
	assert.NotEqual(t,
		Key("london", models.TypeCity, 10, nil),
		Key("london", models.TypeAny, 10, nil))
	assert.NotEqual(t,
		Key("london", models.TypeCity, 10, nil),
		Key("london", models.TypeCity, 20, nil))
}

func TestNilCacheIsDisabled(t *testing.T) {
	c := New(nil, 0)
	assert.Nil(t, c)

	ctx := context.Background()
	places, ok := c.Get(ctx, "search:any:london:10")
	assert.False(t, ok)
	assert.Nil(t, places)

	// no-ops, must not panic
	c.Set(ctx, "search:any:london:10", []models.Place{{ID: 1}})
	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
