package bar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddAndRemoveBottle(t *testing.T) {
	t.Parallel()

	b := New()
	var added, removed []Bottle
	b.OnAdd(func(bottle Bottle) { added = append(added, bottle) })
	b.OnRemove(func(bottle Bottle) { removed = append(removed, bottle) })

	b.AddBottle("gin", "spirit", "UK")
	b.AddBottle("rum", "spirit", "CU")
	require.Len(t, b.GetSelection(), 2)
	require.Len(t, added, 2)

	require.NoError(t, b.RemoveBottle("gin"))
	require.Len(t, b.GetSelection(), 1)
	require.Equal(t, "rum", b.GetSelection()[0].Name)
	require.Len(t, removed, 1)
}

func TestRemoveUnknownBottle(t *testing.T) {
	t.Parallel()

	b := New()
	err := b.RemoveBottle("whisky")
	require.EqualError(t, err, "Sorry, this bottle is not in our selection")
}

func TestStockedConstructor(t *testing.T) {
	t.Parallel()

	b := NewStocked([]Bottle{{Name: "rum", Category: "spirit", Country: "CU"}})
	require.Len(t, b.GetSelection(), 1)
}

func TestPrepareDrinkReportsAsynchronously(t *testing.T) {
	t.Parallel()

	b := New()
	done := make(chan int, 1)
	b.PrepareDrink(func(seconds int) { done <- seconds })

	select {
	case seconds := <-done:
		require.Equal(t, 3, seconds)
	case <-time.After(2 * time.Second):
		t.Fatal("drink was never prepared")
	}
}
