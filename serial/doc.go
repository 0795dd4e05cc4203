// Package serial implements the fastserial object-graph protocol.
//
// A Serializer walks an object graph starting at one entry object and writes
// every reachable object once. Objects that are referenced again are written
// as back-references to the label of their first definition, so shared and
// cyclic graphs round-trip with their identity intact. A Deserializer
// materializes the graph again, lazily by default, jumping through the stream
// as references are followed.
//
// # Objects
//
// A type takes part by implementing Serializable:
//
//	type Node struct {
//	    ID   int32
//	    Next *Node
//	}
//
//	func (n *Node) TypeName() string { return "example.Node" }
//
//	func (n *Node) Serialize(s *serial.Serializer) {
//	    s.WriteInt32(n.ID)
//	    s.Write(n.Next)
//	}
//
//	func (n *Node) Deserialize(d *serial.Deserializer) {
//	    n.ID = d.ReadInt32()
//	    n.Next = serial.ReadAs[*Node](d)
//	}
//
// and registering a factory for its type name:
//
//	serial.MustRegister("example.Node", func() serial.Serializable { return &Node{} })
//
// Serializable values are used as map keys for identity tracking, so they
// must be comparable; pointer types are the norm.
//
// # Versioning
//
// Types that evolve implement Versioned. Fields added after the first version
// are written with the WriteTagged methods and read back with the
// TryReadTagged methods. An older reader skips tagged fields it does not know;
// a newer reader finds them absent in older files and keeps its defaults.
//
// # Errors
//
// Serializer and Deserializer latch the first error, exactly like the stream
// layer. Callbacks do not return errors; they call Fail instead, and the
// operation that drove the callback reports it.
//
// # Concurrency
//
// A Serializer or Deserializer is owned by one goroutine. The Registry is safe
// for concurrent use.
package serial
