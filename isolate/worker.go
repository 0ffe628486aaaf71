package isolate

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// runWorker is what the re-exec'd child process runs instead of the
// application's own main(), reached through MaybeRunWorker. It builds
// the real backend from the registered factory, redirects this
// process's own logging onto the logs pipe, and serves requests until
// msgCleanup or a broken pipe ends the loop.
func runWorker(factoryName string) {
	factory, ok := lookupWorkerFactory(factoryName)
	if !ok {
		fmt.Fprintf(os.Stderr, "isolate: no worker factory registered under %q\n", factoryName)
		os.Exit(1)
	}

	// The whole point of running a driver in its own process is to give
	// it a stable, exclusive thread identity; pin this goroutine (the
	// only one that will ever touch backend, since mainLoop never
	// fans out work) to its OS thread for the same reason
	// thread.go's dedicated goroutine does, and additionally pin it to a single CPU
	// where the platform supports it, so migrations between cores can't
	// upset a driver that keys off thread/cpu identity either.
	runtime.LockOSThread()
	pinCPU()

	m2wR := os.NewFile(3, "msgs_m2w_read")
	w2mW := os.NewFile(4, "msgs_w2m_write")
	logsW := os.NewFile(5, "logs_write")

	logx.Default.SetOutput(&logRelayWriter{logs: newLogConn(logsW, nil)})

	backend, err := factory()
	if err != nil {
		logx.Default.Errorf("worker factory %q failed: %v", factoryName, err)
		os.Exit(1)
	}

	w := newWorker(backend, newMsgConn(w2mW, m2wR))
	w.mainLoop()
	os.Exit(0)
}

// logRelayWriter adapts logx.Logger's io.Writer sink onto the worker's
// dedicated log pipe, grounded on worker.c's worker_log_callback: that
// function replaces the application's log callback entirely so every
// lis_log_* call in the worker is forwarded to the master instead of
// printed locally. logx.Logger already formats "LEVEL [prefix] text"
// before calling Write, so one line in is one logMsg out.
type logRelayWriter struct {
	logs *logConn
}

func (w *logRelayWriter) Write(p []byte) (int, error) {
	if err := w.logs.write(logMsg{Msg: strings.TrimRight(string(p), "\n")}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// worker runs inside the re-exec'd child, dispatching requests read
// off conn against backend. Grounded on worker.c's
// lis_worker_main_loop and its execute_* table: the per-message-type
// execute_* functions and the g_callbacks lookup table they're
// registered in collapse into the single switch in dispatch, since Go
// needs no array-of-function-pointers indirection to read as a
// dispatch table.
//
// items/options/sessions hold every object this worker has handed a
// handle out for, keyed by that handle, standing in for the original
// handing back its own `struct lis_item *`/etc. pointers: same idea
// (an opaque reference the master round-trips without ever
// dereferencing), but a handle since Go values don't have addresses
// meaningful outside this process. Like the worker.c comment they're
// grounded on, there is exactly one goroutine driving this struct
// (mainLoop's read-dispatch-write loop never overlaps two requests),
// so these maps and nextID need no lock.
type worker struct {
	backend libinsane.Backend
	conn    *msgConn

	nextID   uint64
	items    map[uint64]libinsane.Item
	options  map[uint64]libinsane.OptionDescriptor
	sessions map[uint64]libinsane.ScanSession
}

func newWorker(backend libinsane.Backend, conn *msgConn) *worker {
	return &worker{
		backend:  backend,
		conn:     conn,
		items:    map[uint64]libinsane.Item{},
		options:  map[uint64]libinsane.OptionDescriptor{},
		sessions: map[uint64]libinsane.ScanSession{},
	}
}

func (w *worker) handle() uint64 {
	w.nextID++
	return w.nextID
}

func (w *worker) putItem(item libinsane.Item) uint64 {
	h := w.handle()
	w.items[h] = item
	return h
}

func (w *worker) putOption(opt libinsane.OptionDescriptor) uint64 {
	h := w.handle()
	w.options[h] = opt
	return h
}

func (w *worker) putSession(sess libinsane.ScanSession) uint64 {
	h := w.handle()
	w.sessions[h] = sess
	return h
}

func (w *worker) describeOption(o libinsane.OptionDescriptor) remoteOption {
	return remoteOption{
		Handle:       w.putOption(o),
		Name:         o.Name(),
		Title:        o.Title(),
		Desc:         o.Desc(),
		Group:        o.Group(),
		Capabilities: o.Capabilities(),
		ValueType:    o.ValueType(),
		Unit:         o.Unit(),
		Constraint:   o.Constraint(),
	}
}

// mainLoop mirrors lis_worker_main_loop: read a request, run it,
// write the reply, stop once a cleanup request has been served (or
// the pipe breaks, e.g. the master exited).
func (w *worker) mainLoop() {
	logx.Default.Infof("worker ready")
	for {
		var req request
		if err := w.conn.readRequest(&req); err != nil {
			return
		}

		resp := w.dispatch(&req)

		if err := w.conn.writeResponse(resp); err != nil {
			return
		}
		if req.Type == msgCleanup {
			return
		}
	}
}

func (w *worker) dispatch(req *request) *response {
	resp := &response{}
	ctx := context.Background()

	switch req.Type {
	case msgCleanup:
		w.backend.Cleanup()

	case msgListDevices:
		descs, err := w.backend.ListDevices(ctx, req.Locations)
		resp.setErr("list_devices", err)
		if err == nil {
			resp.Devices = descs
		}

	case msgGetDevice:
		item, err := w.backend.GetDevice(ctx, req.DevID)
		resp.setErr("get_device", err)
		if err == nil {
			resp.Handle = w.putItem(item)
			resp.ItemName = item.Name()
			resp.ItemType = item.Type()
		}

	case msgItemGetChildren:
		item, ok := w.items[req.Handle]
		if !ok {
			resp.setErr("item_get_children", libinsane.NewError(libinsane.ErrKindIO, "item_get_children"))
			break
		}
		children, err := item.GetChildren(ctx)
		resp.setErr("item_get_children", err)
		if err == nil {
			resp.Children = make([]remoteItem, len(children))
			for i, c := range children {
				resp.Children[i] = remoteItem{Handle: w.putItem(c), Name: c.Name(), Type: c.Type()}
			}
		}

	case msgItemGetOptions:
		item, ok := w.items[req.Handle]
		if !ok {
			resp.setErr("item_get_options", libinsane.NewError(libinsane.ErrKindIO, "item_get_options"))
			break
		}
		opts, err := item.GetOptions(ctx)
		resp.setErr("item_get_options", err)
		if err == nil {
			resp.Options = make([]remoteOption, len(opts))
			for i, o := range opts {
				resp.Options[i] = w.describeOption(o)
			}
		}

	case msgItemScanStart:
		item, ok := w.items[req.Handle]
		if !ok {
			resp.setErr("item_scan_start", libinsane.NewError(libinsane.ErrKindIO, "item_scan_start"))
			break
		}
		sess, err := item.ScanStart(ctx)
		resp.setErr("item_scan_start", err)
		if err == nil {
			resp.Handle = w.putSession(sess)
		}

	case msgItemClose:
		if item, ok := w.items[req.Handle]; ok {
			item.Close()
			delete(w.items, req.Handle)
		}

	case msgOptGet:
		opt, ok := w.options[req.Handle]
		if !ok {
			resp.setErr("opt_get", libinsane.NewError(libinsane.ErrKindIO, "opt_get"))
			break
		}
		v, err := opt.GetValue(ctx)
		resp.setErr("opt_get", err)
		if err == nil {
			resp.Value = v
		}

	case msgOptSet:
		opt, ok := w.options[req.Handle]
		if !ok {
			resp.setErr("opt_set", libinsane.NewError(libinsane.ErrKindIO, "opt_set"))
			break
		}
		flags, err := opt.SetValue(ctx, req.Value)
		resp.setErr("opt_set", err)
		if err == nil {
			resp.SetFlags = flags
		}

	case msgSessionGetScanParameters:
		sess, ok := w.sessions[req.Handle]
		if !ok {
			resp.setErr("session_get_scan_parameters", libinsane.NewError(libinsane.ErrKindIO, "session_get_scan_parameters"))
			break
		}
		params, err := sess.GetScanParameters()
		resp.setErr("session_get_scan_parameters", err)
		if err == nil {
			resp.Params = params
		}

	case msgSessionEndOfFeed:
		if sess, ok := w.sessions[req.Handle]; ok {
			resp.Bool = sess.EndOfFeed()
		}

	case msgSessionEndOfPage:
		if sess, ok := w.sessions[req.Handle]; ok {
			resp.Bool = sess.EndOfPage()
		}

	case msgSessionScanRead:
		sess, ok := w.sessions[req.Handle]
		if !ok {
			resp.setErr("session_scan_read", libinsane.NewError(libinsane.ErrKindIO, "session_scan_read"))
			break
		}
		buf := make([]byte, req.ReadLen)
		n, err := sess.ScanRead(ctx, buf)
		resp.setErr("session_scan_read", err)
		if err == nil {
			resp.Data = buf[:n]
		}

	case msgSessionCancel:
		if sess, ok := w.sessions[req.Handle]; ok {
			sess.Cancel()
			delete(w.sessions, req.Handle)
		}
	}

	return resp
}
