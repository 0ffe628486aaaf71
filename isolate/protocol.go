package isolate

import (
	"encoding/gob"
	"io"

	"github.com/libinsane/libinsane-go"
)

// msgType enumerates the calls that can cross the master/worker pipe,
// grounded on protocol.h's `enum lis_msg_type`. Cleanup is first, as in
// the original, since the worker's main loop (see worker.go) uses it as
// its own shutdown marker.
type msgType uint8

const (
	msgCleanup msgType = iota
	msgListDevices
	msgGetDevice
	msgItemGetChildren
	msgItemGetOptions
	msgItemScanStart
	msgItemClose
	msgOptGet
	msgOptSet
	msgSessionGetScanParameters
	msgSessionEndOfFeed
	msgSessionEndOfPage
	msgSessionScanRead
	msgSessionCancel
)

// request is sent master -> worker. Only the fields relevant to Type
// are meaningful; this collapses the original's per-message-type
// `lis_pack` format string into a single struct gob already knows how
// to frame and type-check, so protocol.go carries no analog of
// lis_compute_packed_size/lis_pack/lis_unpack (pack.c): nothing in the
// retrieved pack uses a serialization library, and both ends of this
// pipe are the same Go binary, so gob's self-describing stream (the
// same mechanism net/rpc's default codec uses for a request/response
// pipe) replaces the hand-rolled byte format without losing anything
// the worker needs.
type request struct {
	Type msgType

	Locations libinsane.DeviceLocations // list_devices
	DevID     string                    // get_device

	// Handle identifies the remote item/option/session this request
	// targets, assigned by the worker's handle table (see worker.go)
	// the same way the original passes back the raw `struct lis_item *`
	// pointer it handed out earlier: opaque to the master, meaningful
	// only to the worker that issued it.
	Handle uint64

	Value   libinsane.Value // opt_set
	ReadLen int             // session_scan_read: size of buffer to fill
}

// response is sent worker -> master. ErrKind/ErrOp/ErrMsg together
// stand in for the original's `enum lis_error` header field.
// libinsane.ErrorKind has no OK member, so a separate HasError flag
// says whether the reply carries an error, instead of relying on a
// zero ErrKind that would otherwise collide with a real kind.
type response struct {
	HasError bool
	ErrKind  libinsane.ErrorKind
	ErrOp    string
	ErrMsg   string

	Devices []libinsane.DeviceDescriptor // list_devices

	Handle   uint64             // get_device / item_scan_start: new remote handle
	ItemName string             // get_device
	ItemType libinsane.ItemType // get_device

	Children []remoteItem   // item_get_children
	Options  []remoteOption // item_get_options

	Value    libinsane.Value     // opt_get
	SetFlags libinsane.SetFlags  // opt_set
	Params   libinsane.ScanParameters // session_get_scan_parameters
	Bool     bool                // session_end_of_feed / session_end_of_page

	Data []byte // session_scan_read
}

// remoteItem/remoteOption describe one entry of item_get_children /
// item_get_options's reply, analogous to worker.c's serialize_option
// and the "sdp" (name, type, pointer) tuple it packs per child.
type remoteItem struct {
	Handle uint64
	Name   string
	Type   libinsane.ItemType
}

type remoteOption struct {
	Handle       uint64
	Name         string
	Title        string
	Desc         string
	Group        string
	Capabilities libinsane.Capabilities
	ValueType    libinsane.ValueKind
	Unit         libinsane.Unit
	Constraint   libinsane.Constraint
}

// err reconstructs a *libinsane.Error from the response, or nil.
func (r *response) err() error {
	if !r.HasError {
		return nil
	}
	if r.ErrMsg == "" {
		return libinsane.NewError(r.ErrKind, r.ErrOp)
	}
	return libinsane.WrapError(r.ErrKind, r.ErrOp, errString(r.ErrMsg))
}

// errString is a trivial error whose message is exactly the string it
// was built from, used to carry a worker-side error message across the
// pipe without trying to preserve its original Go type.
type errString string

func (e errString) Error() string { return string(e) }

// setErr fills HasError/ErrKind/ErrOp/ErrMsg from err, splitting out a
// *libinsane.Error's Kind/Op when possible and falling back to
// ErrKindIO for anything else, matching the original's worker-side
// errors always being an `enum lis_error` already.
func (r *response) setErr(op string, err error) {
	if err == nil {
		return
	}
	r.HasError = true
	if lerr, ok := err.(*libinsane.Error); ok {
		r.ErrKind = lerr.Kind
		r.ErrOp = lerr.Op
		if lerr.Err != nil {
			r.ErrMsg = lerr.Err.Error()
		}
		return
	}
	r.ErrKind = libinsane.ErrKindIO
	r.ErrOp = op
	r.ErrMsg = err.Error()
}

// msgConn pairs a gob encoder/decoder over one direction-locked pipe
// end each, mirroring struct lis_pipes's msgs_m2w/msgs_w2m split: one
// conn is built with (write=m2w write end, read=w2m read end) on the
// master side, and the mirror image on the worker side.
type msgConn struct {
	enc *gob.Encoder
	dec *gob.Decoder
}

func newMsgConn(w io.Writer, r io.Reader) *msgConn {
	return &msgConn{enc: gob.NewEncoder(w), dec: gob.NewDecoder(r)}
}

func (c *msgConn) writeRequest(req *request) error  { return c.enc.Encode(req) }
func (c *msgConn) readRequest(req *request) error   { return c.dec.Decode(req) }
func (c *msgConn) writeResponse(resp *response) error { return c.enc.Encode(resp) }
func (c *msgConn) readResponse(resp *response) error  { return c.dec.Decode(resp) }

// logMsg is one line sent over the worker's dedicated log pipe,
// grounded on lis_protocol_log_write. The original keeps the log level
// out-of-band as a separate packed field; here the level is already
// part of Msg (logx.Logger formats "LEVEL [prefix] text" before the
// line ever reaches this pipe), so one string field carries it end to
// end without a second field the master would have to re-derive
// anything from. The original's separate stderr pipe (raw redirected
// stdout/stderr bytes) is relayed the same way but over a plain byte
// stream instead of gob, since it carries arbitrary driver output
// rather than a typed log line (see process.go's relayLines).
type logMsg struct {
	Msg string
}

type logConn struct {
	enc *gob.Encoder
	dec *gob.Decoder
}

func newLogConn(w io.Writer, r io.Reader) *logConn {
	return &logConn{enc: gob.NewEncoder(w), dec: gob.NewDecoder(r)}
}

func (c *logConn) write(msg logMsg) error    { return c.enc.Encode(&msg) }
func (c *logConn) read(msg *logMsg) error    { return c.dec.Decode(msg) }
