package runid

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: At with an older stamp resets the monotonic entropy.
func TestNewIsSortableAndUnique(t *testing.T) {
	ids := make([]string, 1000)
	seen := make(map[string]bool, len(ids))
	for i := range ids {
		ids[i] = New()
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2025, 6, 30, 12, 0, 0, 123_000_000, time.UTC)
	id := At(stamp)
	assert.True(t, Valid(id))
	assert.Len(t, id, 26)

	got, err := Time(id)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(got))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
	assert.False(t, Valid("not-a-ulid"))
}
