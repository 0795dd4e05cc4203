package serial

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/stream"
)

func openDeserializer(t *testing.T, data []byte, opts ...Option) *Deserializer {
	t.Helper()

	r, err := stream.NewMemoryReader(data)
	require.NoError(t, err)
	d, err := NewDeserializer(r, opts...)
	require.NoError(t, err)

	return d
}

func TestDeferredRegion_FinishRead(t *testing.T) {
	body := strings.Repeat("lorem ipsum ", 100)
	data := encode(t, &doc{Title: "title", Body: body, Words: 200})

	readModes(t, func(t *testing.T, opts ...Option) {
		d := openDeserializer(t, data, append(opts, WithRegistry(newTestRegistry(t)))...)
		defer d.Close()

		got, err := EntryAs[*doc](d)
		require.NoError(t, err)
		require.Equal(t, "title", got.Title)
		require.Empty(t, got.Body, "region is skipped until finished")
		require.Equal(t, RegionPending, got.body.State())
		require.False(t, got.body.IsDone())

		pos := d.Current()
		require.NoError(t, got.body.FinishRead())
		require.Equal(t, pos, d.Current(), "read position is restored")
		require.Equal(t, body, got.Body)
		require.Equal(t, int32(200), got.Words)
		require.True(t, got.body.IsDone())
		require.Equal(t, "Done", got.body.State().String())

		got.Body = "changed"
		require.NoError(t, got.body.FinishRead(), "second finish is a no-op")
		require.Equal(t, "changed", got.Body)
	})
}

func TestDeferredRegion_Errors(t *testing.T) {
	var unread DeferredRegion
	require.Equal(t, RegionUnread, unread.State())
	require.Error(t, unread.FinishRead())

	data := encode(t, &doc{Title: "t", Body: "b"})
	d := openDeserializer(t, data, WithRegistry(newTestRegistry(t)))
	got, err := EntryAs[*doc](d)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	require.ErrorIs(t, got.body.FinishRead(), errs.ErrClosed)
	require.Equal(t, RegionPending, got.body.State())
}

func TestDeferredRegion_FollowedByObjects(t *testing.T) {
	list := &node{Name: "list"}
	for i := range 3 {
		list.Children = append(list.Children, &node{Name: strings.Repeat("d", i+1)})
	}
	data := encode(t, &shape{Point: &doc{Title: "a", Body: "first"}, Shared: list})

	d := openDeserializer(t, data, WithRegistry(newTestRegistry(t)))
	defer d.Close()

	got, err := EntryAs[*shape](d)
	require.NoError(t, err)
	require.Len(t, got.Shared.Children, 3)
	require.Equal(t, "ddd", got.Shared.Children[2].Name)

	c := got.Point.(*doc)
	require.NoError(t, c.body.FinishRead())
	require.Equal(t, "first", c.Body)
}
