package fastserial

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/serial"
	"github.com/arloliu/fastserial/stream"
)

type person struct {
	Name    string
	Age     int32
	Friends []*person
}

func (p *person) TypeName() string { return "fastserial_test.Person" }

func (p *person) Serialize(s *serial.Serializer) {
	s.WriteString(p.Name)
	s.WriteInt32(p.Age)
	s.WriteInt32(int32(len(p.Friends)))
	for _, f := range p.Friends {
		s.Write(f)
	}
}

func (p *person) Deserialize(d *serial.Deserializer) {
	p.Name = d.ReadString()
	p.Age = d.ReadInt32()
	n := d.ReadInt32()
	for i := int32(0); i < n && d.Err() == nil; i++ {
		p.Friends = append(p.Friends, serial.ReadAs[*person](d))
	}
}

func registryOf(t *testing.T) *serial.Registry {
	t.Helper()

	reg := serial.NewRegistry()
	require.NoError(t, reg.Register("fastserial_test.Person", func() serial.Serializable { return &person{} }))

	return reg
}

func testRegistry(t *testing.T) Option {
	t.Helper()
	return WithSerialOptions(serial.WithRegistry(registryOf(t)))
}

// newCommunity builds a graph with shared and cyclic references.
func newCommunity(size int) *person {
	people := make([]*person, size)
	for i := range people {
		people[i] = &person{Name: strings.Repeat("member ", 1+i%5), Age: int32(20 + i%50)}
	}
	for i, p := range people {
		p.Friends = []*person{people[(i+1)%size], people[(i*7)%size]}
	}

	return people[0]
}

func requireCommunity(t *testing.T, obj serial.Serializable, size int) {
	t.Helper()

	root, ok := obj.(*person)
	require.True(t, ok)

	seen := map[*person]bool{}
	cur := root
	for range size {
		require.False(t, seen[cur])
		seen[cur] = true
		cur = cur.Friends[0]
	}
	require.Same(t, root, cur, "ring closes on the entry object")
	require.Len(t, seen, size)
}

func TestMarshalUnmarshal(t *testing.T) {
	reg := testRegistry(t)
	root := newCommunity(50)

	data, err := Marshal(root)
	require.NoError(t, err)
	require.False(t, IsPacked(data))

	obj, err := Unmarshal(data, reg)
	require.NoError(t, err)
	requireCommunity(t, obj, 50)
}

func TestMarshal_LabelWidth64(t *testing.T) {
	reg := testRegistry(t)
	root := newCommunity(10)

	data, err := Marshal(root, WithLabelWidth(format.LabelWidth64))
	require.NoError(t, err)

	obj, err := Unmarshal(data, reg, WithLabelWidth(format.LabelWidth64))
	require.NoError(t, err)
	requireCommunity(t, obj, 10)
}

func TestMarshalCompressed(t *testing.T) {
	reg := testRegistry(t)
	root := newCommunity(200)

	raw, err := Marshal(root)
	require.NoError(t, err)

	for _, c := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
		format.CompressionLZ,
	} {
		t.Run(c.String(), func(t *testing.T) {
			packed, err := MarshalCompressed(root, WithCompression(c))
			require.NoError(t, err)
			require.True(t, IsPacked(packed))
			require.Equal(t, byte(c), packed[len(PackMagic)])

			stats, err := Inspect(packed)
			require.NoError(t, err)
			require.Equal(t, c, stats.Algorithm)
			require.Equal(t, int64(len(raw)), stats.OriginalSize)
			if c != format.CompressionNone {
				require.Less(t, stats.CompressionRatio(), 1.0)
			}

			obj, err := Unmarshal(packed, reg)
			require.NoError(t, err)
			requireCommunity(t, obj, 200)

			obj, err = UnmarshalCompressed(packed, reg)
			require.NoError(t, err)
			requireCommunity(t, obj, 200)
		})
	}
}

func TestPack_Levels(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))

	for level := 1; level <= 9; level++ {
		packed, err := Pack(payload, WithCompressionLevel(level))
		require.NoError(t, err)

		got, err := Unpack(packed)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}

	_, err := Pack(payload, WithCompressionLevel(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
	_, err = Pack(payload, WithCompression(format.CompressionType(0x7f)))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestPack_Empty(t *testing.T) {
	packed, err := Pack(nil)
	require.NoError(t, err)

	got, err := Unpack(packed)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUnpack_Errors(t *testing.T) {
	payload := []byte(strings.Repeat("abc", 100))
	packed, err := Pack(payload, WithCompression(format.CompressionNone))
	require.NoError(t, err)

	t.Run("NotPacked", func(t *testing.T) {
		_, err := Unpack([]byte("plain"))
		require.ErrorIs(t, err, errs.ErrBadEnvelope)

		_, err = UnmarshalCompressed([]byte("!FastSerialization.1"))
		require.ErrorIs(t, err, errs.ErrBadEnvelope)
	})

	t.Run("Checksum", func(t *testing.T) {
		bad := append([]byte(nil), packed...)
		bad[len(bad)-1] ^= 0xff
		_, err := Unpack(bad)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		bad := append([]byte(nil), packed...)
		bad = bad[:len(bad)-3]
		_, err := Unpack(bad)
		require.ErrorIs(t, err, errs.ErrSizeMismatch)
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		bad := append([]byte(nil), packed...)
		bad[len(PackMagic)] = 0x7f
		_, err := Unpack(bad)
		require.ErrorIs(t, err, errs.ErrBadEnvelope)
	})

	t.Run("TruncatedHeader", func(t *testing.T) {
		_, err := Unpack(packed[:len(PackMagic)+3])
		require.ErrorIs(t, err, errs.ErrBadEnvelope)

		_, err = Inspect(packed[:len(PackMagic)+3])
		require.ErrorIs(t, err, errs.ErrBadEnvelope)
	})
}

func TestWriteReadFile(t *testing.T) {
	reg := testRegistry(t)
	root := newCommunity(300)
	path := filepath.Join(t.TempDir(), "graph.fs")

	require.NoError(t, WriteFile(path, root, WithStreamOptions(stream.WithFlushThreshold(512))))

	obj, err := ReadFile(path, reg)
	require.NoError(t, err)
	requireCommunity(t, obj, 300)

	cached, err := stream.OpenCachedFile(path, stream.WithBlockSize(1024))
	require.NoError(t, err)
	obj, err = serial.Deserialize(cached, serial.WithRegistry(registryOf(t)))
	require.NoError(t, err)
	requireCommunity(t, obj, 300)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestOptions_Invalid(t *testing.T) {
	_, err := Marshal(&person{}, WithLabelWidth(3))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = Unmarshal(nil, WithLabelWidth(5))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}
