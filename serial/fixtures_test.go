package serial

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fastserial/stream"
)

const (
	nodeTypeName  = "test.Node"
	lazyTypeName  = "test.Lazy"
	pointTypeName = "test.Point"
	shapeTypeName = "test.Shape"
	linkTypeName  = "test.Link"
	chainTypeName = "test.Chain"
	textTypeName  = "test.Text"
	docTypeName   = "test.Doc"
)

type node struct {
	Name     string
	Value    int64
	Next     *node
	Children []*node
}

func (n *node) TypeName() string { return nodeTypeName }

func (n *node) Serialize(s *Serializer) {
	s.WriteString(n.Name)
	s.WriteInt64(n.Value)
	s.Write(n.Next)
	s.WriteInt32(int32(len(n.Children)))
	for _, c := range n.Children {
		s.Write(c)
	}
}

func (n *node) Deserialize(d *Deserializer) {
	n.Name = d.ReadString()
	n.Value = d.ReadInt64()
	n.Next = ReadAs[*node](d)
	count := d.ReadInt32()
	for i := int32(0); i < count && d.Err() == nil; i++ {
		n.Children = append(n.Children, ReadAs[*node](d))
	}
}

// lazy defers its target to the forward definition list.
type lazy struct {
	Value  int32
	Target *node
	Peer   *lazy
}

func (l *lazy) TypeName() string { return lazyTypeName }

func (l *lazy) Serialize(s *Serializer) {
	s.WriteInt32(l.Value)
	s.WriteDefered(l.Target)
	s.WriteDefered(l.Peer)
}

func (l *lazy) Deserialize(d *Deserializer) {
	l.Value = d.ReadInt32()
	l.Target = ReadAs[*node](d)
	l.Peer = ReadAs[*lazy](d)
}

type pointV1 struct {
	X int32
}

func (p *pointV1) TypeName() string { return pointTypeName }
func (p *pointV1) Version() int32 { return 1 }
func (p *pointV1) MinimumVersionCanRead() int32 { return 1 }
func (p *pointV1) MinimumReaderVersion() int32 { return 1 }
func (p *pointV1) Serialize(s *Serializer) { s.WriteInt32(p.X) }
func (p *pointV1) Deserialize(d *Deserializer) { p.X = d.ReadInt32() }

// pointV2 adds tagged fields that version 1 readers skip.
type pointV2 struct {
	X     int32
	Label string
	Extra *node
	Blob  []byte
	Stamp int64
	Flag  bool

	readVersion int32
}

func (p *pointV2) TypeName() string { return pointTypeName }
func (p *pointV2) Version() int32 { return 2 }
func (p *pointV2) MinimumVersionCanRead() int32 { return 1 }
func (p *pointV2) MinimumReaderVersion() int32 { return 1 }

func (p *pointV2) Serialize(s *Serializer) {
	s.WriteInt32(p.X)
	s.WriteTaggedString(p.Label)
	s.WriteTaggedObject(p.Extra)
	s.WriteTaggedBlob(p.Blob)
	s.WriteTaggedInt64(p.Stamp)
	s.WriteTaggedBool(p.Flag)
}

func (p *pointV2) Deserialize(d *Deserializer) {
	p.readVersion = d.VersionBeingRead()
	p.X = d.ReadInt32()
	if v, ok := d.TryReadTaggedString(); ok {
		p.Label = v
	}
	p.Extra, _ = TryReadTaggedObject[*node](d)
	p.Blob, _ = d.TryReadTaggedBlob()
	p.Stamp, _ = d.TryReadTaggedInt64()
	p.Flag, _ = d.TryReadTaggedBool()
}

// pointV3 can only be read by version 3 readers.
type pointV3 struct{ pointV1 }

func (p *pointV3) Version() int32 { return 3 }
func (p *pointV3) MinimumVersionCanRead() int32 { return 3 }
func (p *pointV3) MinimumReaderVersion() int32 { return 3 }

// pointStrict refuses files older than version 4.
type pointStrict struct{ pointV1 }

func (p *pointStrict) Version() int32 { return 5 }
func (p *pointStrict) MinimumVersionCanRead() int32 { return 4 }
func (p *pointStrict) MinimumReaderVersion() int32 { return 1 }

type shape struct {
	Point  Serializable
	Shared *node
}

func (s *shape) TypeName() string { return shapeTypeName }

func (s *shape) Serialize(ser *Serializer) {
	ser.Write(s.Point)
	ser.Write(s.Shared)
}

func (s *shape) Deserialize(d *Deserializer) {
	s.Point = d.ReadObject()
	s.Shared = ReadAs[*node](d)
}

// link is written privately by its owner.
type link struct {
	ID   int32
	Next *link
}

func (l *link) TypeName() string { return linkTypeName }

func (l *link) Serialize(s *Serializer) {
	s.WriteInt32(l.ID)
	s.WritePrivate(l.Next)
}

func (l *link) Deserialize(d *Deserializer) {
	l.ID = d.ReadInt32()
	l.Next = ReadAs[*link](d)
}

type chain struct {
	Head *link
}

func (c *chain) TypeName() string { return chainTypeName }

func (c *chain) Serialize(s *Serializer) {
	s.WritePrivate(c.Head)
}

func (c *chain) Deserialize(d *Deserializer) {
	c.Head = ReadAs[*link](d)
}

type text struct {
	Plain    string
	Nullable *string
	Empty    string
	Tagged   string
}

func (t *text) TypeName() string { return textTypeName }

func (t *text) Serialize(s *Serializer) {
	s.WriteString(t.Plain)
	s.WriteNullableString(t.Nullable)
	s.WriteString(t.Empty)
	s.WriteTaggedString(t.Tagged)
}

func (t *text) Deserialize(d *Deserializer) {
	t.Plain = d.ReadString()
	t.Nullable = d.ReadNullableString()
	t.Empty = d.ReadString()
	t.Tagged, _ = d.TryReadTaggedString()
}

type doc struct {
	Title string
	Body  string
	Words int32

	body DeferredRegion
}

func (c *doc) TypeName() string { return docTypeName }

func (c *doc) Serialize(s *Serializer) {
	s.WriteString(c.Title)
	c.body.Write(s, func(s *Serializer) {
		s.WriteString(c.Body)
		s.WriteInt32(c.Words)
	})
}

func (c *doc) Deserialize(d *Deserializer) {
	c.Title = d.ReadString()
	c.body.Read(d, func(d *Deserializer) {
		c.Body = d.ReadString()
		c.Words = d.ReadInt32()
	})
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()
	for name, f := range map[string]Factory{
		nodeTypeName:  func() Serializable { return &node{} },
		lazyTypeName:  func() Serializable { return &lazy{} },
		pointTypeName: func() Serializable { return &pointV2{} },
		shapeTypeName: func() Serializable { return &shape{} },
		linkTypeName:  func() Serializable { return &link{} },
		chainTypeName: func() Serializable { return &chain{} },
		textTypeName:  func() Serializable { return &text{} },
		docTypeName:   func() Serializable { return &doc{} },
	} {
		require.NoError(t, reg.Register(name, f))
	}

	return reg
}

func encode(t *testing.T, entry Serializable, opts ...Option) []byte {
	t.Helper()

	w, err := stream.NewMemoryWriter()
	require.NoError(t, err)
	require.NoError(t, Serialize(w, entry, opts...))

	return append([]byte(nil), w.Bytes()...)
}

func decode(data []byte, opts ...Option) (Serializable, error) {
	r, err := stream.NewMemoryReader(data)
	if err != nil {
		return nil, err
	}

	return Deserialize(r, opts...)
}

// readModes runs fn once for lazy and once for eager reads.
func readModes(t *testing.T, fn func(t *testing.T, opts ...Option)) {
	t.Run("Lazy", func(t *testing.T) { fn(t) })
	t.Run("Eager", func(t *testing.T) { fn(t, WithEagerRead()) })
}

type recordedEvent struct {
	event    string
	label    stream.Label
	typeName string
}

type recordingTracer struct {
	events []recordedEvent
}

func (r *recordingTracer) Enabled() bool { return true }

func (r *recordingTracer) Event(event string, label stream.Label, typeName string) {
	r.events = append(r.events, recordedEvent{event: event, label: label, typeName: typeName})
}
