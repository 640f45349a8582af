package kmf

// Kind is the one-byte discriminant that begins every packet on the wire.
// Values are part of the wire contract and must never be renumbered.
type Kind byte

const (
	KindOk           Kind = 0
	KindErr          Kind = 1
	KindServerHello  Kind = 2
	KindAction       Kind = 3
	KindClientQuit   Kind = 4
	KindDropSend     Kind = 5
	KindDropRequest  Kind = 6
	KindData         Kind = 7
	KindEdgeL        Kind = 8
	KindEdgeR        Kind = 9
)

// Packet is the tagged union of everything that can cross the wire. Each
// concrete type below implements it; Kind reports the packet's
// discriminant so a caller can switch on it without a type assertion.
type Packet interface {
	Kind() Kind
}

// Ok carries no payload; it is the generic success acknowledgement.
type Ok struct{}

func (Ok) Kind() Kind { return KindOk }

// Err carries a coarse error code plus a human-readable message.
type Err struct {
	Code    ErrorCode
	Message string
}

func (Err) Kind() Kind { return KindErr }

// ServerHello carries the slave's ServerConfig. It must be the first packet
// on a new connection.
type ServerHello struct {
	Config ServerConfig
}

func (ServerHello) Kind() Kind { return KindServerHello }

// Action carries one GenericAction variant.
type Action struct {
	Payload GenericAction
}

func (Action) Kind() Kind { return KindAction }

// ClientQuit carries no payload; it announces an orderly end of session.
type ClientQuit struct{}

func (ClientQuit) Kind() Kind { return KindClientQuit }

// DropSend announces an incoming file-drop push; Filename is advisory and
// must be sanitized by the receiver before any filesystem use.
type DropSend struct {
	Filename string
}

func (DropSend) Kind() Kind { return KindDropSend }

// DropRequest asks the peer to push a named file back.
type DropRequest struct {
	Filename string
}

func (DropRequest) Kind() Kind { return KindDropRequest }

// Data carries raw file bytes, always paired with a preceding DropSend or
// DropRequest on the same connection.
type Data struct {
	Bytes []byte
}

func (Data) Kind() Kind { return KindData }

// EdgeL and EdgeR carry no payload; they are best-effort edge-crossing
// notifications acknowledged with Ok.
type EdgeL struct{}

func (EdgeL) Kind() Kind { return KindEdgeL }

type EdgeR struct{}

func (EdgeR) Kind() Kind { return KindEdgeR }

// hasPayload reports whether a kind byte is followed by a length-prefixed
// body. Ok, ClientQuit, EdgeL, and EdgeR are bodiless.
func hasPayload(k Kind) bool {
	switch k {
	case KindOk, KindClientQuit, KindEdgeL, KindEdgeR:
		return false
	default:
		return true
	}
}

func validKind(b byte) (Kind, bool) {
	k := Kind(b)
	switch k {
	case KindOk, KindErr, KindServerHello, KindAction, KindClientQuit,
		KindDropSend, KindDropRequest, KindData, KindEdgeL, KindEdgeR:
		return k, true
	default:
		return 0, false
	}
}
