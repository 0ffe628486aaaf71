// Command lisscan is a thin example client over this module, the same
// role tjgq-sane/example and tjgq-sane/test/test.go play for the
// teacher's own Conn-based API, and the original's examples/lis_scan.c
// plays for the C library: list available devices, print a device's
// options, or run one scan to a file. It is not itself a spec
// component; it exists to exercise one, the way the teacher ships its
// own example program.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
	"golang.org/x/term"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/compose"
	"github.com/libinsane/libinsane-go/format"
	"github.com/libinsane/libinsane-go/internal/logx"
	"github.com/libinsane/libinsane-go/isolate"
)

func main() {
	// Must run before anything else: if this process was re-exec'd as a
	// dedicated_process worker (isolate.WrapDedicatedProcess), this
	// takes over and never returns.
	isolate.MaybeRunWorker()

	verbose := flag.Bool("v", false, "enable debug logging")
	spec := flag.String("pipeline", "", "comma-separated base,wrapper,... pipeline (default: safebet)")
	flag.Parse()

	if *verbose {
		logx.Default.SetLevel(logx.Debug)
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	backend, err := buildBackend(*spec)
	if err != nil {
		die(err)
	}
	defer backend.Cleanup()

	switch args[0] {
	case "list":
		listDevices(backend)
	case "show":
		if len(args) != 2 {
			usage()
		}
		showOptions(backend, args[1])
	case "scan":
		if len(args) < 3 {
			usage()
		}
		doScan(backend, args[1], args[2], args[3:])
	default:
		usage()
	}
}

func buildBackend(spec string) (libinsane.Backend, error) {
	if spec != "" {
		return compose.Str2Impls(spec)
	}
	if cfg, err := compose.FindConfig(); err != nil {
		return nil, err
	} else if cfg != nil {
		return compose.Build(cfg)
	}
	return compose.Safebet()
}

func listDevices(backend libinsane.Backend) {
	descs, err := backend.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		die(err)
	}
	if len(descs) == 0 {
		print("No available devices.\n")
		return
	}
	for _, d := range descs {
		print("Device %s is a %s %s %s\n", d.ID, d.Vendor, d.Model, d.Type)
	}
}

var unitName = map[libinsane.Unit]string{
	libinsane.UnitPixel:      "pixels",
	libinsane.UnitBit:        "bits",
	libinsane.UnitMm:         "millimetres",
	libinsane.UnitDpi:        "dots per inch",
	libinsane.UnitPercent:    "percent",
	libinsane.UnitMicrosecond: "microseconds",
	libinsane.UnitNone:       "",
}

func showOptions(backend libinsane.Backend, devID string) {
	ctx := context.Background()
	item, err := backend.GetDevice(ctx, devID)
	if err != nil {
		die(err)
	}
	defer item.Close()

	sources, err := item.GetChildren(ctx)
	if err != nil {
		die(err)
	}
	if len(sources) == 0 {
		sources = []libinsane.Item{item}
	}

	for _, src := range sources {
		print("Source %s:\n", src.Name())
		opts, err := src.GetOptions(ctx)
		if err != nil {
			die(err)
		}
		lastGroup := ""
		for _, o := range opts {
			if o.Group() != lastGroup {
				print("  %s:\n", o.Group())
				lastGroup = o.Group()
			}
			printOption(ctx, o)
		}
	}
}

func printOption(ctx context.Context, o libinsane.OptionDescriptor) {
	print("    -%s", o.Name())
	printConstraint(o.Constraint())

	if o.Capabilities().Readable() {
		if v, err := o.GetValue(ctx); err == nil {
			print(" [%s]", formatValue(v))
		} else {
			print(" [?]")
		}
	} else {
		print(" [inactive]")
	}

	if name, ok := unitName[o.Unit()]; ok && name != "" {
		print(" %s", name)
	}
	print("\n")
	printWrapped(o.Desc(), 8, 70)
}

func printConstraint(c libinsane.Constraint) {
	switch c.Kind {
	case libinsane.ConstraintRange:
		print(" %s..%s", formatValue(c.Range.Min), formatValue(c.Range.Max))
		if hasStep(c.Range.Interval) {
			print(" in steps of %s", formatValue(c.Range.Interval))
		}
	case libinsane.ConstraintList:
		for i, v := range c.List {
			if i == 0 {
				print(" %s", formatValue(v))
			} else {
				print("|%s", formatValue(v))
			}
		}
	}
}

// hasStep reports whether a range's quantization interval is
// meaningful (non-zero), matching the original example's own check on
// ConstrRange.Quant before printing "in steps of".
func hasStep(v libinsane.Value) bool {
	switch v.Kind {
	case libinsane.KindInt:
		return v.Int != 0
	case libinsane.KindDouble:
		return v.Double != 0
	default:
		return false
	}
}

func formatValue(v libinsane.Value) string {
	switch v.Kind {
	case libinsane.KindBool:
		return strconv.FormatBool(v.Bool)
	case libinsane.KindInt:
		return strconv.Itoa(v.Int)
	case libinsane.KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case libinsane.KindString:
		return v.Str
	case libinsane.KindImageFormat:
		return v.Format.String()
	default:
		return "?"
	}
}

// printWrapped wraps text to width starting at column indent, the same
// naive word-wrap tjgq-sane's own example/example.go and test/test.go
// use for option descriptions (won't handle fancy Unicode input any
// better than the teacher's own version does).
func printWrapped(text string, indent, width int) {
	indentStr := strings.Repeat(" ", indent)
	for _, line := range strings.Split(text, "\n") {
		pos := 0
		for _, word := range strings.Fields(line) {
			if pos+len(word) > width {
				print("\n")
				pos = 0
			}
			if pos == 0 {
				print("%s%s", indentStr, word)
			} else {
				print(" %s", word)
			}
			pos += len(word) + 1
		}
		print("\n")
	}
}

func findOption(opts []libinsane.OptionDescriptor, name string) (libinsane.OptionDescriptor, error) {
	for _, o := range opts {
		if o.Name() == name {
			return o, nil
		}
	}
	return nil, fmt.Errorf("no such option: %s", name)
}

func parseOptionArgs(ctx context.Context, opts []libinsane.OptionDescriptor, args []string) error {
	if len(args)%2 != 0 {
		return fmt.Errorf("expected -option value pairs")
	}
	for i := 0; i < len(args); i += 2 {
		if !strings.HasPrefix(args[i], "-") {
			return fmt.Errorf("expected an option name starting with '-', got %q", args[i])
		}
		o, err := findOption(opts, strings.TrimPrefix(args[i], "-"))
		if err != nil {
			return err
		}
		v, err := parseValue(o.ValueType(), args[i+1])
		if err != nil {
			return err
		}
		if _, err := o.SetValue(ctx, v); err != nil {
			return fmt.Errorf("setting %s: %w", o.Name(), err)
		}
	}
	return nil
}

func parseValue(kind libinsane.ValueKind, s string) (libinsane.Value, error) {
	switch kind {
	case libinsane.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return libinsane.Value{}, fmt.Errorf("not a bool: %s", s)
		}
		return libinsane.Bool(b), nil
	case libinsane.KindInt:
		i, err := strconv.Atoi(s)
		if err != nil {
			return libinsane.Value{}, fmt.Errorf("not an int: %s", s)
		}
		return libinsane.Int(i), nil
	case libinsane.KindDouble:
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return libinsane.Value{}, fmt.Errorf("not a float: %s", s)
		}
		return libinsane.Double(d), nil
	default:
		return libinsane.String(s), nil
	}
}

func pathToEncoder(path string) (func(io.Writer, *format.Frame) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return func(w io.Writer, f *format.Frame) error { return png.Encode(w, f) }, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, f *format.Frame) error { return jpeg.Encode(w, f, nil) }, nil
	case ".tif", ".tiff":
		return func(w io.Writer, f *format.Frame) error { return tiff.Encode(w, f, nil) }, nil
	default:
		return nil, fmt.Errorf("unrecognized extension: %s", path)
	}
}

func doScan(backend libinsane.Backend, devID, outPath string, optArgs []string) {
	ctx := context.Background()

	enc, err := pathToEncoder(outPath)
	if err != nil {
		die(err)
	}

	item, err := backend.GetDevice(ctx, devID)
	if err != nil {
		die(err)
	}
	defer item.Close()

	sources, err := item.GetChildren(ctx)
	if err != nil {
		die(err)
	}
	src := item
	if len(sources) > 0 {
		src = sources[0]
	}
	print("Using source %s\n", src.Name())

	opts, err := src.GetOptions(ctx)
	if err != nil {
		die(err)
	}
	if err := parseOptionArgs(ctx, opts, optArgs); err != nil {
		die(err)
	}

	session, err := src.ScanStart(ctx)
	if err != nil {
		die(err)
	}
	defer session.Cancel()

	params, err := session.GetScanParameters()
	if err != nil {
		die(err)
	}
	print("Scan will be %d x %d px (%d bytes)\n", params.Width, params.Height, params.ImageSize)

	progressWidth := 40
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 10 {
		progressWidth = w - 10
	}

	page, err := readPageWithProgress(ctx, session, params.ImageSize, progressWidth)
	if err != nil {
		die(err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		die(err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			die(err)
		}
	}()

	if err := enc(f, page); err != nil {
		die(err)
	}
	print("\nAll done!\n")
}

// readPageWithProgress wraps format.ReadPage's single blocking call
// with a byte-count progress line, grounded on the original's own
// `obtained`/`image_size` KB counter in examples/lis_scan.c; since
// format.ReadPage doesn't expose incremental progress, this drives the
// same read loop directly instead of calling it, trading the shared
// helper for a visible running total.
func readPageWithProgress(ctx context.Context, session libinsane.ScanSession, total, width int) (*format.Frame, error) {
	params, err := session.GetScanParameters()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, total)
	bufSize := 4096
	for !session.EndOfPage() {
		buf := make([]byte, bufSize)
		n, err := session.ScanRead(ctx, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			bufSize *= 2
			continue
		}
		out = append(out, buf[:n]...)
		printProgress(len(out), total, width)
	}

	return &format.Frame{Width: params.Width, Height: params.Height, Pix: out}, nil
}

func printProgress(done, total, width int) {
	if total <= 0 {
		print("\r%d KB", done/1024)
		return
	}
	filled := width * done / total
	if filled > width {
		filled = width
	}
	print("\r[%s%s] %d/%d KB", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), done/1024, total/1024)
}

func print(f string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, f, v...)
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	print("Usage: %s [-v] [-pipeline spec] list\n", exeName)
	print("       %s [-v] [-pipeline spec] show <device-id>\n", exeName)
	print("       %s [-v] [-pipeline spec] scan <device-id> <output-file> [-option value ...]\n", exeName)
	os.Exit(1)
}

func die(v ...interface{}) {
	if len(v) > 0 {
		fmt.Fprintln(os.Stderr, v...)
	}
	os.Exit(1)
}
