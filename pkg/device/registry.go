// ABOUTME: Device registry built on the two-phase property protocol
// ABOUTME: Enumerates output devices, reads names, sets default device and volume
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
)

const idSize = 4

// Descriptor is derived on demand from the store and never cached
type Descriptor struct {
	ID       DeviceID
	Name     string
	IsOutput bool
}

// Registry queries and configures devices through a PropertyStore.
//
// Nothing is atomic across calls: a device can disappear between DeviceCount
// and DeviceIDs, or between DeviceIDs and a per-device query. Callers get
// ErrDeviceNotFound in that case and decide whether to enumerate again.
type Registry struct {
	store PropertyStore
}

// NewRegistry creates a registry over store
func NewRegistry(store PropertyStore) *Registry {
	return &Registry{store: store}
}

// Store returns the underlying property store
func (r *Registry) Store() PropertyStore {
	return r.store
}

// DeviceCount sizes the global device list
func (r *Registry) DeviceCount() (uint32, error) {
	addr := DevicesAddress()
	size, st := r.store.QuerySize(SystemObject, addr)
	if !st.OK() {
		return 0, queryErr("device count", SystemObject, addr, st, ErrQueryFailed)
	}
	return size / idSize, nil
}

// DeviceIDs fetches the device list in one call, sized by DeviceCount
func (r *Registry) DeviceIDs() ([]DeviceID, error) {
	n, err := r.DeviceCount()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	addr := DevicesAddress()
	buf := make([]byte, n*idSize)
	written, st := r.store.QueryData(SystemObject, addr, buf)
	if !st.OK() {
		return nil, queryErr("device ids", SystemObject, addr, st, ErrQueryFailed)
	}
	if written > uint32(len(buf)) {
		written = uint32(len(buf))
	}

	ids := make([]DeviceID, written/idSize)
	for i := range ids {
		ids[i] = binary.NativeEndian.Uint32(buf[i*idSize:])
	}
	return ids, nil
}

// DeviceName returns the localized device name. The platform string handle is
// always released.
func (r *Registry) DeviceName(id DeviceID) (string, error) {
	addr := NameAddress()

	size, st := r.store.QuerySize(id, addr)
	if !st.OK() {
		return "", queryErr("device name size", id, addr, st, ErrDeviceNotFound)
	}
	if size < 4 {
		return "", &QueryError{Op: "device name size", Object: id, Address: addr, Kind: ErrQueryFailed,
			Err: fmt.Errorf("string handle of %d bytes", size)}
	}

	buf := make([]byte, size)
	written, st := r.store.QueryData(id, addr, buf)
	if !st.OK() {
		return "", queryErr("device name", id, addr, st, ErrDeviceNotFound)
	}
	if written < 4 {
		return "", &QueryError{Op: "device name", Object: id, Address: addr, Kind: ErrQueryFailed,
			Err: fmt.Errorf("short string handle (%d bytes)", written)}
	}

	ref := StringRef(binary.NativeEndian.Uint32(buf))
	defer r.store.ReleaseString(ref)

	units, st := r.store.CopyString(ref)
	if !st.OK() {
		return "", queryErr("copy device name", id, addr, st, ErrQueryFailed)
	}

	name, err := DecodeName(units)
	if err != nil {
		return "", &QueryError{Op: "decode device name", Object: id, Address: addr, Kind: ErrDecode, Err: err}
	}
	return name, nil
}

// IsOutputDevice reports whether the device has output streams. A zero-sized
// stream configuration is a valid "no" and not an error.
func (r *Registry) IsOutputDevice(id DeviceID) (bool, error) {
	addr := StreamConfigAddress()
	size, st := r.store.QuerySize(id, addr)
	if !st.OK() {
		return false, queryErr("output stream configuration", id, addr, st, ErrQueryFailed)
	}
	return size > 0, nil
}

// DefaultOutputDevice returns the system default output device
func (r *Registry) DefaultOutputDevice() (DeviceID, error) {
	addr := DefaultOutputAddress()
	buf := make([]byte, idSize)
	written, st := r.store.QueryData(SystemObject, addr, buf)
	if !st.OK() {
		return UnknownObject, queryErr("default output device", SystemObject, addr, st, ErrQueryFailed)
	}

	id := UnknownObject
	if written >= idSize {
		id = binary.NativeEndian.Uint32(buf)
	}
	if id == UnknownObject {
		return UnknownObject, &QueryError{Op: "default output device", Object: SystemObject, Address: addr,
			Kind: ErrDeviceNotFound, Err: errors.New("no default output device configured")}
	}
	return id, nil
}

// SetOutputDevice makes id the system default output device
func (r *Registry) SetOutputDevice(id DeviceID) error {
	addr := DefaultOutputAddress()
	buf := make([]byte, idSize)
	binary.NativeEndian.PutUint32(buf, id)
	if st := r.store.SetData(SystemObject, addr, buf); !st.OK() {
		return queryErr("set default output device", SystemObject, addr, st, ErrQueryFailed)
	}
	log.Printf("Default output device set to %d", id)
	return nil
}

// StereoChannels returns the element numbers of the left and right channels
func (r *Registry) StereoChannels(id DeviceID) (left, right uint32, err error) {
	addr := PreferredStereoAddress()

	size, st := r.store.QuerySize(id, addr)
	if !st.OK() {
		return 0, 0, queryErr("stereo channel numbering size", id, addr, st, ErrQueryFailed)
	}
	if size < 2*idSize {
		return 0, 0, &QueryError{Op: "stereo channel numbering size", Object: id, Address: addr,
			Kind: ErrQueryFailed, Err: fmt.Errorf("property of %d bytes, want %d", size, 2*idSize)}
	}

	buf := make([]byte, size)
	written, st := r.store.QueryData(id, addr, buf)
	if !st.OK() {
		return 0, 0, queryErr("stereo channel numbering", id, addr, st, ErrQueryFailed)
	}
	if written < 2*idSize {
		return 0, 0, &QueryError{Op: "stereo channel numbering", Object: id, Address: addr,
			Kind: ErrQueryFailed, Err: fmt.Errorf("short read of %d bytes", written)}
	}

	return binary.NativeEndian.Uint32(buf), binary.NativeEndian.Uint32(buf[idSize:]), nil
}

// SetVolume sets the left and right volume scalars (clamped to 0..1). If the
// right channel fails after the left one succeeded, the left change stays.
func (r *Registry) SetVolume(id DeviceID, left, right float32) error {
	l, rt, err := r.StereoChannels(id)
	if err != nil {
		return err
	}

	for _, ch := range []struct {
		name    string
		element uint32
		value   float32
	}{
		{"left", l, clampScalar(left)},
		{"right", rt, clampScalar(right)},
	} {
		addr := VolumeAddress(ch.element)
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, math.Float32bits(ch.value))
		if st := r.store.SetData(id, addr, buf); !st.OK() {
			return queryErr("set "+ch.name+" volume", id, addr, st, ErrQueryFailed)
		}
	}
	return nil
}

// Volume reads the left and right volume scalars
func (r *Registry) Volume(id DeviceID) (left, right float32, err error) {
	l, rt, err := r.StereoChannels(id)
	if err != nil {
		return 0, 0, err
	}

	read := func(name string, element uint32) (float32, error) {
		addr := VolumeAddress(element)
		buf := make([]byte, 4)
		written, st := r.store.QueryData(id, addr, buf)
		if !st.OK() {
			return 0, queryErr(name+" volume", id, addr, st, ErrQueryFailed)
		}
		if written < 4 {
			return 0, &QueryError{Op: name + " volume", Object: id, Address: addr, Kind: ErrQueryFailed,
				Err: fmt.Errorf("short read of %d bytes", written)}
		}
		return math.Float32frombits(binary.NativeEndian.Uint32(buf)), nil
	}

	if left, err = read("left", l); err != nil {
		return 0, 0, err
	}
	if right, err = read("right", rt); err != nil {
		return 0, 0, err
	}
	return left, right, nil
}

// Describe builds the descriptor of one device
func (r *Registry) Describe(id DeviceID) (Descriptor, error) {
	name, err := r.DeviceName(id)
	if err != nil {
		return Descriptor{}, err
	}
	out, err := r.IsOutputDevice(id)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{ID: id, Name: name, IsOutput: out}, nil
}

// Devices describes every device. Devices that vanish mid-walk are skipped.
func (r *Registry) Devices() ([]Descriptor, error) {
	ids, err := r.DeviceIDs()
	if err != nil {
		return nil, err
	}

	devices := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		d, err := r.Describe(id)
		if errors.Is(err, ErrDeviceNotFound) {
			log.Printf("Device %d disappeared during enumeration, skipping", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// OutputDevices is Devices filtered to output-capable ones
func (r *Registry) OutputDevices() ([]Descriptor, error) {
	all, err := r.Devices()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if d.IsOutput {
			out = append(out, d)
		}
	}
	return out, nil
}

// FindByName returns the first output device whose name matches,
// ignoring case
func (r *Registry) FindByName(name string) (Descriptor, error) {
	devices, err := r.OutputDevices()
	if err != nil {
		return Descriptor{}, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: no output device named %q", ErrDeviceNotFound, name)
}

// queryErr maps a failed status to an error. A bad-object status on a device
// query always surfaces as ErrDeviceNotFound so enumeration can tolerate
// hot-unplug.
func queryErr(op string, obj ObjectID, addr Address, st Status, kind error) error {
	if obj != SystemObject && st == StatusBadObject {
		kind = ErrDeviceNotFound
	}
	return &QueryError{Op: op, Object: obj, Address: addr, Status: st, Kind: kind}
}

func clampScalar(v float32) float32 {
	if v < 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
