package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

type nullPort struct{}

func (nullPort) AsyncWrite([]byte) error         { return nil }
func (nullPort) PrepareReadQueue(int, int) error { return nil }
func (nullPort) BlockingRead() ([]byte, error)   { return nil, serialio.ErrPortClosed }
func (nullPort) MaxPacketSize() int              { return 64 }

func newEntry() (serialio.AsyncPort, *serialio.IOManager) {
	p := nullPort{}
	return p, serialio.NewIOManager(p, nil)
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()
	p, m := newEntry()
	require.NoError(t, r.Add("ttyUSB0", p, m))
	assert.Equal(t, 1, r.Count())

	got, ok := r.Get("ttyUSB0")
	require.True(t, ok)
	assert.Equal(t, "ttyUSB0", got.Name)
	assert.Same(t, m, got.Manager)

	removed, ok := r.Remove("ttyUSB0")
	require.True(t, ok)
	assert.Same(t, got, removed)
	assert.Zero(t, r.Count())

	_, ok = r.Get("ttyUSB0")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	p, m := newEntry()
	require.NoError(t, r.Add("ttyUSB0", p, m))
	assert.Error(t, r.Add("ttyUSB0", p, m))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryEachVisitsAll(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"ttyUSB0", "ttyUSB1", "ttyACM0"} {
		p, m := newEntry()
		require.NoError(t, r.Add(name, p, m))
	}

	seen := map[string]bool{}
	r.Each(func(mp *ManagedPort) { seen[mp.Name] = true })
	assert.Len(t, seen, 3)
	assert.ElementsMatch(t, []string{"ttyUSB0", "ttyUSB1", "ttyACM0"}, r.Names())
}

func TestRegistryRemoveMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Remove("nope")
	assert.False(t, ok)
}
