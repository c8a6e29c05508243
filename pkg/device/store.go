// ABOUTME: Platform property protocol consumed by the registry
// ABOUTME: Implemented by the in-memory store and the output backends
package device

// StringRef is a handle to a platform-owned string. The holder must release it.
type StringRef uint32

// PropertyStore is the platform side of the two-phase property protocol.
// Property payloads use host byte order. Implementations are called from one
// goroutine at a time by a Registry but may be shared with playback backends,
// so they must be safe for concurrent use.
type PropertyStore interface {
	// QuerySize reports how many bytes QueryData would produce
	QuerySize(obj ObjectID, addr Address) (uint32, Status)

	// QueryData fills buf and returns the number of bytes written
	QueryData(obj ObjectID, addr Address, buf []byte) (uint32, Status)

	// SetData writes a property
	SetData(obj ObjectID, addr Address, buf []byte) Status

	// CopyString returns the UTF-16 code units (little-endian) behind ref
	CopyString(ref StringRef) ([]byte, Status)

	// ReleaseString frees ref
	ReleaseString(ref StringRef)
}
