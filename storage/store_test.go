package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Value uint64
}

func TestPersistentStaysReadablePastTTLWindow(t *testing.T) {
	var seq uint64 = 100
	s := New(NewMemDB(), func() uint64 { return seq })

	require.NoError(t, s.Put(Persistent, "reserve", []byte("r0"), &record{Value: 42}))

	seq += PersistentExtendThresh + 1
	var out record
	ok, err := s.Get(Persistent, "reserve", []byte("r0"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), out.Value)

	seq += PersistentLiveUntilBump + 1
	ok, err = s.Get(Persistent, "reserve", []byte("r0"), &out)
	require.NoError(t, err)
	require.True(t, ok, "persistent entries never expire on their own; only TTL bookkeeping tracks staleness")
}

func TestTemporaryExpiresWithoutExtension(t *testing.T) {
	var seq uint64 = 0
	s := New(NewMemDB(), func() uint64 { return seq })

	require.NoError(t, s.Put(Temporary, "auction", []byte("a0"), &record{Value: 7}))

	seq = TemporaryLiveUntilBump + 1
	var out record
	ok, err := s.Get(Temporary, "auction", []byte("a0"), &out)
	require.NoError(t, err)
	require.False(t, ok, "temporary entries must be treated as absent once their TTL lapses")
}

func TestTemporaryExtendKeepsEntryLive(t *testing.T) {
	var seq uint64 = 0
	s := New(NewMemDB(), func() uint64 { return seq })

	require.NoError(t, s.Put(Temporary, "auction", []byte("a0"), &record{Value: 7}))

	seq = TemporaryLiveUntilBump - 1
	require.NoError(t, s.Extend(Temporary, "auction", []byte("a0")))

	seq = TemporaryLiveUntilBump + 100
	var out record
	ok, err := s.Get(Temporary, "auction", []byte("a0"), &out)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteRemovesValueAndMeta(t *testing.T) {
	s := New(NewMemDB(), func() uint64 { return 0 })
	require.NoError(t, s.Put(Instance, "cfg", []byte("k"), &record{Value: 1}))
	require.NoError(t, s.Delete("cfg", []byte("k")))

	var out record
	ok, err := s.Get(Instance, "cfg", []byte("k"), &out)
	require.NoError(t, err)
	require.False(t, ok)
}
