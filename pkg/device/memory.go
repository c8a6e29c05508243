// ABOUTME: In-memory property store simulating a platform audio object graph
// ABOUTME: Backs tests and the null backend; supports hot-unplug and fault injection
package device

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/Resonate-Protocol/wavplay/pkg/fourcc"
)

type memDevice struct {
	id             DeviceID
	name           []byte // UTF-16LE
	outputChannels int
	volume         map[uint32]float32
}

type failKey struct {
	obj      ObjectID
	selector fourcc.Code
}

// MemoryStore is a PropertyStore held entirely in memory
type MemoryStore struct {
	mu            sync.Mutex
	devices       []*memDevice
	nextID        DeviceID
	defaultOutput DeviceID
	strings       map[StringRef][]byte
	nextRef       StringRef
	failures      map[failKey]Status
}

// NewMemoryStore creates an empty store. Device ids start above SystemObject.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   SystemObject + 1,
		strings:  make(map[StringRef][]byte),
		nextRef:  1,
		failures: make(map[failKey]Status),
	}
}

// AddDevice attaches a device. outputChannels == 0 makes an input-only device.
// The first output device becomes the default output.
func (m *MemoryStore) AddDevice(name string, outputChannels int) DeviceID {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := &memDevice{
		id:             m.nextID,
		name:           EncodeName(name),
		outputChannels: outputChannels,
		volume:         make(map[uint32]float32),
	}
	for ch := 1; ch <= outputChannels; ch++ {
		d.volume[uint32(ch)] = 1
	}
	m.nextID++
	m.devices = append(m.devices, d)

	if m.defaultOutput == UnknownObject && outputChannels > 0 {
		m.defaultOutput = d.id
	}
	return d.id
}

// RemoveDevice detaches a device, as if it were unplugged
func (m *MemoryStore) RemoveDevice(id DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.devices {
		if d.id == id {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			break
		}
	}
	if m.defaultOutput == id {
		m.defaultOutput = UnknownObject
	}
}

// SetDefaultOutput makes id the default output without going through the
// property protocol. It reports false for unknown or input-only devices.
func (m *MemoryStore) SetDefaultOutput(id DeviceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.find(id)
	if d == nil || d.outputChannels == 0 {
		return false
	}
	m.defaultOutput = id
	return true
}

// SetRawName replaces a device name with arbitrary UTF-16 bytes
func (m *MemoryStore) SetRawName(id DeviceID, units []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.find(id); d != nil {
		d.name = append([]byte(nil), units...)
	}
}

// Fail makes every call for selector on obj return st until ClearFailures
func (m *MemoryStore) Fail(obj ObjectID, selector fourcc.Code, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[failKey{obj, selector}] = st
}

// ClearFailures removes all injected failures
func (m *MemoryStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[failKey]Status)
}

// ChannelVolume returns the stored scalar for one element of a device
func (m *MemoryStore) ChannelVolume(id DeviceID, element uint32) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.find(id)
	if d == nil {
		return 0, false
	}
	v, ok := d.volume[element]
	return v, ok
}

// DefaultOutput returns the current default output id without the protocol
func (m *MemoryStore) DefaultOutput() DeviceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultOutput
}

// OutstandingStrings counts string handles not yet released
func (m *MemoryStore) OutstandingStrings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strings)
}

// QuerySize implements PropertyStore
func (m *MemoryStore) QuerySize(obj ObjectID, addr Address) (uint32, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, st := m.property(obj, addr, false)
	return uint32(len(data)), st
}

// QueryData implements PropertyStore
func (m *MemoryStore) QueryData(obj ObjectID, addr Address, buf []byte) (uint32, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// size the value before materializing so a refused query leaves no
	// string handle behind
	data, st := m.property(obj, addr, false)
	if !st.OK() {
		return 0, st
	}

	if len(buf) < len(data) {
		// lists truncate to whole entries, scalars refuse
		if addr.Selector != SelectorDevices {
			return 0, StatusBadPropertySize
		}
		data = data[:len(buf)/idSize*idSize]
	} else if addr.Selector == SelectorName {
		data, _ = m.property(obj, addr, true)
	}
	return uint32(copy(buf, data)), StatusOK
}

// SetData implements PropertyStore
func (m *MemoryStore) SetData(obj ObjectID, addr Address, buf []byte) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.failures[failKey{obj, addr.Selector}]; ok {
		return st
	}

	if obj == SystemObject {
		if addr.Selector != SelectorDefaultOutput || addr.Scope != ScopeGlobal {
			return StatusUnknownProperty
		}
		if len(buf) < idSize {
			return StatusBadPropertySize
		}
		d := m.find(binary.NativeEndian.Uint32(buf))
		if d == nil {
			return StatusBadDevice
		}
		if d.outputChannels == 0 {
			return StatusIllegalOperation
		}
		m.defaultOutput = d.id
		return StatusOK
	}

	d := m.find(obj)
	if d == nil {
		return StatusBadObject
	}
	if addr.Selector != SelectorVolumeScalar || addr.Scope != ScopeOutput {
		return StatusUnsupported
	}
	if _, ok := d.volume[addr.Element]; !ok {
		return StatusUnknownProperty
	}
	if len(buf) < 4 {
		return StatusBadPropertySize
	}
	d.volume[addr.Element] = math.Float32frombits(binary.NativeEndian.Uint32(buf))
	return StatusOK
}

// CopyString implements PropertyStore
func (m *MemoryStore) CopyString(ref StringRef) ([]byte, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strings[ref]
	if !ok {
		return nil, StatusBadObject
	}
	return append([]byte(nil), s...), StatusOK
}

// ReleaseString implements PropertyStore
func (m *MemoryStore) ReleaseString(ref StringRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, ref)
}

// property renders the current value of a property. materialize allocates
// string handles; size queries must not leak them.
func (m *MemoryStore) property(obj ObjectID, addr Address, materialize bool) ([]byte, Status) {
	if st, ok := m.failures[failKey{obj, addr.Selector}]; ok {
		return nil, st
	}

	if obj == SystemObject {
		if addr.Scope != ScopeGlobal {
			return nil, StatusUnknownProperty
		}
		switch addr.Selector {
		case SelectorDevices:
			b := make([]byte, idSize*len(m.devices))
			for i, d := range m.devices {
				binary.NativeEndian.PutUint32(b[i*idSize:], d.id)
			}
			return b, StatusOK
		case SelectorDefaultOutput:
			b := make([]byte, idSize)
			binary.NativeEndian.PutUint32(b, m.defaultOutput)
			return b, StatusOK
		}
		return nil, StatusUnknownProperty
	}

	d := m.find(obj)
	if d == nil {
		return nil, StatusBadObject
	}

	switch {
	case addr.Selector == SelectorName && addr.Scope == ScopeGlobal:
		b := make([]byte, 4)
		if materialize {
			ref := m.nextRef
			m.nextRef++
			m.strings[ref] = append([]byte(nil), d.name...)
			binary.NativeEndian.PutUint32(b, uint32(ref))
		}
		return b, StatusOK

	case addr.Selector == SelectorStreamConfig && addr.Scope == ScopeOutput:
		if d.outputChannels == 0 {
			return nil, StatusOK
		}
		// one buffer carrying every output channel
		b := make([]byte, 8)
		binary.NativeEndian.PutUint32(b, 1)
		binary.NativeEndian.PutUint32(b[4:], uint32(d.outputChannels))
		return b, StatusOK

	case addr.Selector == SelectorPreferredStereo && addr.Scope == ScopeOutput:
		if d.outputChannels == 0 {
			return nil, StatusUnknownProperty
		}
		right := uint32(2)
		if d.outputChannels == 1 {
			right = 1
		}
		b := make([]byte, 8)
		binary.NativeEndian.PutUint32(b, 1)
		binary.NativeEndian.PutUint32(b[4:], right)
		return b, StatusOK

	case addr.Selector == SelectorVolumeScalar && addr.Scope == ScopeOutput:
		v, ok := d.volume[addr.Element]
		if !ok {
			return nil, StatusUnknownProperty
		}
		b := make([]byte, 4)
		binary.NativeEndian.PutUint32(b, math.Float32bits(v))
		return b, StatusOK
	}

	return nil, StatusUnknownProperty
}

func (m *MemoryStore) find(id DeviceID) *memDevice {
	for _, d := range m.devices {
		if d.id == id {
			return d
		}
	}
	return nil
}
