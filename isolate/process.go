package isolate

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WorkerFactory builds the backend that should actually run inside a
// dedicated worker process. Go has no fork(): lis_api_workaround_
// dedicated_process's child simply inherits the already-constructed
// `to_wrap` API object because fork() duplicates the whole address
// space. A re-exec'd Go process starts from main() with nothing
// inherited but open file descriptors and the environment, so the
// worker has to build its own equivalent backend from scratch. A
// WorkerFactory registered under a name (RegisterWorkerFactory) is how
// it does that: the master passes the name across the re-exec via an
// environment variable, and the worker looks the same name up again
// after it starts.
type WorkerFactory func() (libinsane.Backend, error)

var (
	factoriesMu sync.Mutex
	factories   = map[string]WorkerFactory{}
)

// RegisterWorkerFactory makes factory available to worker processes
// re-exec'd by WrapDedicatedProcess(name, ...). Call it from an init()
// in the same binary that calls WrapDedicatedProcess: the registry is
// rebuilt from scratch every time the binary starts, including in the
// re-exec'd worker.
func RegisterWorkerFactory(name string, factory WorkerFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

func lookupWorkerFactory(name string) (WorkerFactory, bool) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	f, ok := factories[name]
	return f, ok
}

// workerEnvVar, when set in a process's environment, tells
// MaybeRunWorker that this process is the re-exec'd worker rather than
// the application's normal entry point, and names the WorkerFactory to
// use.
const workerEnvVar = "LIBINSANE_DEDICATED_PROCESS_WORKER"

// MaybeRunWorker must be called first thing in every main() of a
// program that ever calls WrapDedicatedProcess. If the process was
// re-exec'd as a worker, it runs the worker loop and never returns
// (the process exits when the loop ends); otherwise it returns
// immediately and the caller's normal main() proceeds.
func MaybeRunWorker() {
	name := os.Getenv(workerEnvVar)
	if name == "" {
		return
	}
	runWorker(name)
	os.Exit(0)
}

// ProcessBackend proxies every libinsane.Backend/Item/OptionDescriptor/
// ScanSession call to a dedicated worker process, so that a crash in
// the base backend (a segfault inside a vendor Sane/WIA/TWAIN driver,
// unrecoverable in-process) only takes down the worker. Grounded on
// lis_api_workaround_dedicated_process/master.c.
type ProcessBackend struct {
	cmd  *exec.Cmd
	conn *msgConn

	// mu serializes every call to the worker, mirroring master.c's
	// single global g_mutex/LIS_LOCK/LIS_UNLOCK: the pipe carries one
	// request and one reply at a time, so two goroutines racing to
	// write a request would otherwise interleave their bytes on the
	// wire.
	mu sync.Mutex

	log      *logx.Logger
	baseName string
}

// WrapDedicatedProcess re-executes the current binary with
// factoryName, wires three pipes to it (requests, replies, logs), and
// relays its stdout/stderr into the "dedicated_process" logger the way
// master.c's log-reading
// pthread relays pipes->logs and pipes->stderr into the application's
// own logger.
func WrapDedicatedProcess(factoryName string) (*ProcessBackend, error) {
	m2wR, m2wW, err := os.Pipe()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}
	w2mR, w2mW, err := os.Pipe()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}
	logsR, logsW, err := os.Pipe()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), workerEnvVar+"="+factoryName)
	// ExtraFiles land at fd 3, 4, 5 in the child, in this order: the
	// child's end of msgs_m2w (read), msgs_w2m (write) and logs
	// (write).
	cmd.ExtraFiles = []*os.File{m2wR, w2mW, logsW}

	log := logx.Default.Named("dedicated_process")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.wrap", err)
	}

	// The ends handed to the child are now duplicated into it; the
	// master doesn't need its own copies.
	m2wR.Close()
	w2mW.Close()
	logsW.Close()

	b := &ProcessBackend{
		cmd:      cmd,
		conn:     newMsgConn(m2wW, w2mR),
		log:      log,
		baseName: factoryName,
	}

	go relayLines(stdout, log, "worker stdout")
	go relayLines(stderr, log, "worker stderr")
	go relayLogs(logsR, log)

	return b, nil
}

// relayLines forwards each line of r to log, the Go equivalent of
// master.c's pthread reading pipes->stderr and re-emitting it through
// lis_log_*.
func relayLines(r io.Reader, log *logx.Logger, tag string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Infof("%s: %s", tag, scanner.Text())
	}
}

// relayLogs reads logMsg lines off logsR (written by the worker's
// redirected logx output, see worker.go) and re-emits them, mirroring
// master.c's lis_protocol_log_read loop.
func relayLogs(logsR *os.File, log *logx.Logger) {
	conn := newLogConn(nil, logsR)
	for {
		var msg logMsg
		if err := conn.read(&msg); err != nil {
			return
		}
		log.Infof("%s", msg.Msg)
	}
}

// call sends req to the worker and waits for its reply, serialized
// behind mu the way every master_* function in master.c is serialized
// behind g_mutex.
func (b *ProcessBackend) call(req *request) (*response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.conn.writeRequest(req); err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.call", err)
	}
	var resp response
	if err := b.conn.readResponse(&resp); err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "dedicated_process.call", err)
	}
	return &resp, nil
}

func (b *ProcessBackend) BaseName() string { return b.baseName }

func (b *ProcessBackend) Cleanup() {
	_, _ = b.call(&request{Type: msgCleanup})
	_ = b.cmd.Wait()
}

func (b *ProcessBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	resp, err := b.call(&request{Type: msgListDevices, Locations: loc})
	if err != nil {
		return nil, err
	}
	if resp.HasError {
		return nil, resp.err()
	}
	return resp.Devices, nil
}

func (b *ProcessBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	resp, err := b.call(&request{Type: msgGetDevice, DevID: devID})
	if err != nil {
		return nil, err
	}
	if resp.HasError {
		return nil, resp.err()
	}
	return &processItem{backend: b, handle: resp.Handle, name: resp.ItemName, itype: resp.ItemType}, nil
}

type processItem struct {
	backend *ProcessBackend
	handle  uint64
	name    string
	itype   libinsane.ItemType
}

func (it *processItem) Name() string            { return it.name }
func (it *processItem) Type() libinsane.ItemType { return it.itype }

func (it *processItem) Close() {
	_, _ = it.backend.call(&request{Type: msgItemClose, Handle: it.handle})
}

func (it *processItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	resp, err := it.backend.call(&request{Type: msgItemGetChildren, Handle: it.handle})
	if err != nil {
		return nil, err
	}
	if resp.HasError {
		return nil, resp.err()
	}
	out := make([]libinsane.Item, len(resp.Children))
	for i, c := range resp.Children {
		out[i] = &processItem{backend: it.backend, handle: c.Handle, name: c.Name, itype: c.Type}
	}
	return out, nil
}

func (it *processItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	resp, err := it.backend.call(&request{Type: msgItemGetOptions, Handle: it.handle})
	if err != nil {
		return nil, err
	}
	if resp.HasError {
		return nil, resp.err()
	}
	out := make([]libinsane.OptionDescriptor, len(resp.Options))
	for i, o := range resp.Options {
		out[i] = &processOption{backend: it.backend, handle: o.Handle, info: o}
	}
	return out, nil
}

func (it *processItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	// Not isolated across the pipe in the original either: master.c has
	// no master_item_get_scan_parameters. This always returns
	// zero-value parameters without contacting the worker; only a
	// session's GetScanParameters crosses the pipe.
	return libinsane.ScanParameters{}, nil
}

func (it *processItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	resp, err := it.backend.call(&request{Type: msgItemScanStart, Handle: it.handle})
	if err != nil {
		return nil, err
	}
	if resp.HasError {
		return nil, resp.err()
	}
	return &processSession{backend: it.backend, handle: resp.Handle}, nil
}

type processOption struct {
	backend *ProcessBackend
	handle  uint64
	info    remoteOption
}

func (o *processOption) Name() string                        { return o.info.Name }
func (o *processOption) Title() string                        { return o.info.Title }
func (o *processOption) Desc() string                         { return o.info.Desc }
func (o *processOption) Group() string                        { return o.info.Group }
func (o *processOption) Capabilities() libinsane.Capabilities { return o.info.Capabilities }
func (o *processOption) ValueType() libinsane.ValueKind       { return o.info.ValueType }
func (o *processOption) Unit() libinsane.Unit                 { return o.info.Unit }
func (o *processOption) Constraint() libinsane.Constraint     { return o.info.Constraint }

func (o *processOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	resp, err := o.backend.call(&request{Type: msgOptGet, Handle: o.handle})
	if err != nil {
		return libinsane.Value{}, err
	}
	if resp.HasError {
		return libinsane.Value{}, resp.err()
	}
	return resp.Value, nil
}

func (o *processOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	resp, err := o.backend.call(&request{Type: msgOptSet, Handle: o.handle, Value: v})
	if err != nil {
		return libinsane.SetFlags{}, err
	}
	if resp.HasError {
		return libinsane.SetFlags{}, resp.err()
	}
	return resp.SetFlags, nil
}

type processSession struct {
	backend *ProcessBackend
	handle  uint64
}

func (s *processSession) GetScanParameters() (libinsane.ScanParameters, error) {
	resp, err := s.backend.call(&request{Type: msgSessionGetScanParameters, Handle: s.handle})
	if err != nil {
		return libinsane.ScanParameters{}, err
	}
	if resp.HasError {
		return libinsane.ScanParameters{}, resp.err()
	}
	return resp.Params, nil
}

func (s *processSession) EndOfFeed() bool {
	resp, err := s.backend.call(&request{Type: msgSessionEndOfFeed, Handle: s.handle})
	if err != nil {
		return true
	}
	return resp.Bool
}

func (s *processSession) EndOfPage() bool {
	resp, err := s.backend.call(&request{Type: msgSessionEndOfPage, Handle: s.handle})
	if err != nil {
		return true
	}
	return resp.Bool
}

func (s *processSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	resp, err := s.backend.call(&request{Type: msgSessionScanRead, Handle: s.handle, ReadLen: len(buf)})
	if err != nil {
		return 0, err
	}
	if resp.HasError {
		return 0, resp.err()
	}
	n := copy(buf, resp.Data)
	return n, nil
}

func (s *processSession) Cancel() {
	_, _ = s.backend.call(&request{Type: msgSessionCancel, Handle: s.handle})
}
