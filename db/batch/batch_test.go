package batch

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skerrydb/skerry/storage/compact"
	"github.com/skerrydb/skerry/storage/item"
	"github.com/skerrydb/skerry/storage/sortedrun"
	"github.com/skerrydb/skerry/util"
)

func TestBatch_StageAndInspect(t *testing.T) {
	t.Parallel()

	batch := New(NewArgs{})
	assert.True(t, batch.IsEmpty())
	assert.Equal(t, 0, batch.Len())
	assert.Empty(t, batch.Partitions())
	assert.Equal(t, uint64(0), batch.EncodedSize())

	require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("v1")))
	require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("v1+")))
	require.NoError(t, batch.Put([]byte("users"), []byte("bob"), []byte("value2")))
	require.NoError(t, batch.Delete([]byte("users"), []byte("carol")))
	require.NoError(t, batch.Put([]byte("events"), []byte("login"), []byte("ok")))

	assert.False(t, batch.IsEmpty())
	assert.Equal(t, 5, batch.Len())
	assert.Equal(t, [][]byte{[]byte("events"), []byte("users")}, batch.Partitions())

	// 20 + 21 + 22 + 18 + 21
	assert.Equal(t, uint64(102), batch.EncodedSize())

	t.Run("items walk key order, newest mutation first", func(t *testing.T) {
		assert.Equal(t, []item.Item{
			item.Must([]byte("users"), []byte("alice"), []byte("v1+"), item.Value),
			item.Must([]byte("users"), []byte("alice"), []byte("v1"), item.Value),
			item.Must([]byte("users"), []byte("bob"), []byte("value2"), item.Value),
			item.Must([]byte("users"), []byte("carol"), nil, item.Tombstone),
		}, slices.Collect(batch.Items([]byte("users"))))

		assert.Empty(t, slices.Collect(batch.Items([]byte("nonexistent"))))
	})

	batch.Clear()
	assert.True(t, batch.IsEmpty())
	assert.Equal(t, 0, batch.Len())
	assert.Empty(t, batch.Partitions())
	assert.Equal(t, uint64(0), batch.EncodedSize())
}

func TestBatch_Validation(t *testing.T) {
	t.Parallel()

	batch := New(NewArgs{})

	assert.ErrorIs(t, batch.Put(nil, []byte("alice"), []byte("active")), item.ErrEmptyPartition)
	assert.ErrorIs(t, batch.Put([]byte("users"), nil, []byte("active")), item.ErrEmptyKey)
	assert.ErrorIs(t, batch.Delete([]byte("users"), nil), item.ErrEmptyKey)
	assert.ErrorIs(t, batch.DeleteWeak(nil, []byte("alice")), item.ErrEmptyPartition)

	bigValue := bytes.Repeat([]byte("v"), item.DefaultMaxValueSize+1)
	assert.ErrorIs(t, batch.Put([]byte("users"), []byte("alice"), bigValue), item.ErrValueTooLong)

	// rejected mutations are not staged
	assert.True(t, batch.IsEmpty())

	roomy := New(NewArgs{
		Limits: item.Limits{MaxValueSize: util.Some(uint64(1) << 20)},
	})
	require.NoError(t, roomy.Put([]byte("users"), []byte("alice"), bigValue))
	assert.Equal(t, 1, roomy.Len())

	roomy.Clear()
	require.NoError(t, roomy.Put([]byte("users"), []byte("alice"), bigValue),
		"clearing must keep the configured limits")
}

func TestBatch_Flatten(t *testing.T) {
	t.Parallel()

	t.Run("same-key mutations fold to the newest", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.Put([]byte("users"), []byte("key1"), []byte("value1")))
		require.NoError(t, batch.Put([]byte("users"), []byte("key1"), []byte("value1")))
		require.NoError(t, batch.Put([]byte("users"), []byte("key2"), []byte("value2")))
		require.NoError(t, batch.Put([]byte("users"), []byte("key3"), []byte("value3")))
		require.NoError(t, batch.Put([]byte("users"), []byte("key4"), []byte("value4")))
		require.NoError(t, batch.Delete([]byte("users"), []byte("key2")))
		require.NoError(t, batch.Delete([]byte("users"), []byte("key3")))
		require.NoError(t, batch.Delete([]byte("users"), []byte("key3")))
		require.NoError(t, batch.Put([]byte("users"), []byte("key3"), []byte("value3+")))

		runs, err := batch.Flatten(10)
		require.NoError(t, err)
		require.Len(t, runs, 1)

		run := runs[0]
		assert.Equal(t, []byte("users"), run.Partition())
		assert.Equal(t, uint64(10), run.Seq())
		assert.Equal(t, uint64(4), run.NumEntries())

		_, exists := run.Lookup([]byte("nonexistent"))
		assert.False(t, exists)

		entry1, exists := run.Lookup([]byte("key1"))
		_ = assert.True(t, exists) && assert.Equal(t, item.Item{
			Partition: []byte("users"),
			Key:       []byte("key1"),
			Value:     []byte("value1"),
		}, entry1)

		entry2, exists := run.Lookup([]byte("key2"))
		_ = assert.True(t, exists) && assert.Equal(t, item.Item{
			Partition: []byte("users"),
			Key:       []byte("key2"),
			ValueType: item.Tombstone,
		}, entry2)

		entry3, exists := run.Lookup([]byte("key3"))
		_ = assert.True(t, exists) && assert.Equal(t, item.Item{
			Partition: []byte("users"),
			Key:       []byte("key3"),
			Value:     []byte("value3+"),
		}, entry3)

		entry4, exists := run.Lookup([]byte("key4"))
		_ = assert.True(t, exists) && assert.Equal(t, item.Item{
			Partition: []byte("users"),
			Key:       []byte("key4"),
			Value:     []byte("value4"),
		}, entry4)
	})

	t.Run("partitions flatten in name order", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("active")))
		require.NoError(t, batch.Put([]byte("events"), []byte("login"), []byte("ok")))
		require.NoError(t, batch.Put([]byte("logs"), []byte("0001"), []byte("boot")))

		runs, err := batch.Flatten(7)
		require.NoError(t, err)
		require.Len(t, runs, 3)

		assert.Equal(t, []byte("events"), runs[0].Partition())
		assert.Equal(t, uint64(7), runs[0].Seq())
		assert.Equal(t, []byte("logs"), runs[1].Partition())
		assert.Equal(t, uint64(8), runs[1].Seq())
		assert.Equal(t, []byte("users"), runs[2].Partition())
		assert.Equal(t, uint64(9), runs[2].Seq())
	})

	t.Run("identical keys in different partitions stay isolated", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("u")))
		require.NoError(t, batch.Put([]byte("events"), []byte("alice"), []byte("e")))
		require.NoError(t, batch.Delete([]byte("logs"), []byte("alice")))

		runs, err := batch.Flatten(1)
		require.NoError(t, err)
		require.Len(t, runs, 3)

		entry, exists := runs[0].Lookup([]byte("alice"))
		_ = assert.True(t, exists) && assert.Equal(t, []byte("e"), entry.Value)

		entry, exists = runs[1].Lookup([]byte("alice"))
		_ = assert.True(t, exists) && assert.Equal(t, item.Tombstone, entry.ValueType)

		entry, exists = runs[2].Lookup([]byte("alice"))
		_ = assert.True(t, exists) && assert.Equal(t, []byte("u"), entry.Value)
	})

	t.Run("weak delete annihilates the staging below it", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("staged")))
		require.NoError(t, batch.DeleteWeak([]byte("users"), []byte("alice")))

		runs, err := batch.Flatten(1)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, uint64(0), runs[0].NumEntries())
	})

	t.Run("put over a weak delete survives", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.DeleteWeak([]byte("users"), []byte("alice")))
		require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("staged")))

		runs, err := batch.Flatten(1)
		require.NoError(t, err)
		require.Len(t, runs, 1)

		entry, exists := runs[0].Lookup([]byte("alice"))
		_ = assert.True(t, exists) && assert.Equal(t, []byte("staged"), entry.Value)
	})

	t.Run("lone weak delete is carried into the run", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.DeleteWeak([]byte("users"), []byte("alice")))

		runs, err := batch.Flatten(1)
		require.NoError(t, err)
		require.Len(t, runs, 1)

		entry, exists := runs[0].Lookup([]byte("alice"))
		_ = assert.True(t, exists) &&
			assert.Equal(t, item.WeakTombstone, entry.ValueType)
	})

	t.Run("empty batch", func(t *testing.T) {
		batch := New(NewArgs{})

		runs, err := batch.Flatten(1)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("flattening leaves the batch intact", func(t *testing.T) {
		batch := New(NewArgs{})

		require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("active")))

		first, err := batch.Flatten(1)
		require.NoError(t, err)
		second, err := batch.Flatten(20)
		require.NoError(t, err)

		assert.Equal(t, 1, batch.Len())
		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, uint64(1), first[0].Seq())
		assert.Equal(t, uint64(20), second[0].Seq())
		assert.Equal(t, first[0].Items(), second[0].Items())
	})
}

func TestBatch_FlattenAndMerge(t *testing.T) {
	t.Parallel()

	stored, err := sortedrun.New(sortedrun.NewArgs{
		Partition: []byte("users"),
		Seq:       1,
		Entries: []item.Item{
			item.Must([]byte("users"), []byte("alice"), []byte("v0"), item.Value),
			item.Must([]byte("users"), []byte("bob"), []byte("b0"), item.Value),
			item.Must([]byte("users"), []byte("dave"), []byte("d0"), item.Value),
		},
	})
	require.NoError(t, err)

	batch := New(NewArgs{})
	require.NoError(t, batch.Put([]byte("users"), []byte("alice"), []byte("v1")))
	require.NoError(t, batch.Delete([]byte("users"), []byte("bob")))
	require.NoError(t, batch.DeleteWeak([]byte("users"), []byte("dave")))

	runs, err := batch.Flatten(2)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	t.Run("merge over the stored run", func(t *testing.T) {
		merged, err := compact.Merge(compact.MergeArgs{
			Srcs: []*sortedrun.Run{&stored, &runs[0]},
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), merged.Seq())

		allEntries := merged.Items()
		require.Len(t, allEntries, 2)
		assert.Equal(t, "alice", string(allEntries[0].Key))
		assert.Equal(t, "v1", string(allEntries[0].Value))
		assert.Equal(t, "bob", string(allEntries[1].Key))
		assert.Equal(t, item.Tombstone, allEntries[1].ValueType)
	})

	t.Run("bottommost merge over the stored run", func(t *testing.T) {
		merged, err := compact.Merge(compact.MergeArgs{
			Srcs:           []*sortedrun.Run{&stored, &runs[0]},
			DropTombstones: true,
		})
		require.NoError(t, err)

		allEntries := merged.Items()
		require.Len(t, allEntries, 1)
		assert.Equal(t, "alice", string(allEntries[0].Key))
		assert.Equal(t, "v1", string(allEntries[0].Value))
	})
}
