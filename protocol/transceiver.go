package protocol

// Transceiver is the one-at-a-time, blocking byte channel the engine
// rides on (C2 in the data flow). Production code backs it with
// *transport.Device; tests back it with an in-memory mock so the
// engine is driven headless (spec.md §9 DESIGN NOTES).
type Transceiver interface {
	Send(buf []byte) error
	Recv(buf []byte) error
}
