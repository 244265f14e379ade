// Package main implements the recording-to-image replay tool: it reads a
// session recording produced by mitm-proxy and renders it frame by frame
// into numbered PNG snapshots, one per finished GDI render pass.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/logging"
	"github.com/rcarmo/rdp-mitm/internal/replay"
)

var (
	appName    = "RDP Replay"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags()
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		log.Fatalln(err)
	}
}

type parsedArgs struct {
	input       string
	outputDir   string
	logLevel    string
	width       int
	height      int
	hasOrderCap bool
	glyphLevel  int
}

//go:noinline
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("rdp-replay", flag.ContinueOnError)
	input := fs.String("in", "", "recording file to replay (required)")
	outputDir := fs.String("out", "./replay-frames", "directory to write PNG snapshots to")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	width := fs.Int("width", 1024, "replay surface width")
	height := fs.Int("height", 768, "replay surface height")
	hasOrderCap := fs.Bool("order-caps", true, "the recorded session negotiated CAPSTYPE_ORDER")
	glyphLevel := fs.Int("glyph-level", 0, "negotiated glyph support level (GLYPH_SUPPORT_*)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	_ = fs.Parse(args)

	if *helpFlag {
		showHelp()
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		showVersion()
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		input:       strings.TrimSpace(*input),
		outputDir:   strings.TrimSpace(*outputDir),
		logLevel:    strings.TrimSpace(*logLevel),
		width:       *width,
		height:      *height,
		hasOrderCap: *hasOrderCap,
		glyphLevel:  *glyphLevel,
	}, ""
}

func run(args parsedArgs) error {
	if args.input == "" {
		return fmt.Errorf("no recording specified: pass -in")
	}

	logging.SetLevelFromString(args.logLevel)
	baseLog := logging.With("rdp-replay")

	if err := os.MkdirAll(args.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Open(args.input)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	frameCount := 0
	writer := &pngFrameWriter{dir: args.outputDir, log: baseLog}

	player := replay.NewPlayer(args.width, args.height, writer, baseLog)
	player.SetOrderCapabilities(args.hasOrderCap, uint16(args.glyphLevel))
	player.OnClipboardData(func(payload []byte) {
		baseLog.Info().Int("bytes", len(payload)).Msg("clipboard data replayed")
	})

	if err := player.Play(f); err != nil {
		baseLog.Warn().Err(err).Msg("replay stopped early")
	}

	frameCount = writer.count
	baseLog.Info().Int("frames_written", frameCount).Str("out", args.outputDir).Msg("replay finished")
	return nil
}

// pngFrameWriter implements replay.ImageHandler, writing each notified
// surface out as a sequentially numbered PNG file.
type pngFrameWriter struct {
	dir   string
	count int
	log   zerolog.Logger
}

func (w *pngFrameWriter) NotifyImage(surface *replay.Surface) {
	img := &image.NRGBA{
		Pix:    surface.Pixels,
		Stride: surface.Width * 4,
		Rect:   image.Rect(0, 0, surface.Width, surface.Height),
	}

	path := fmt.Sprintf("%s/frame-%06d.png", w.dir, w.count)
	out, err := os.Create(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("create frame file failed")
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("encode frame png failed")
		return
	}
	w.count++
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: rdp-replay -in recording.rec [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -in           Recording file to replay (required)")
	fmt.Println("  -out          Directory to write PNG snapshots to (default ./replay-frames)")
	fmt.Println("  -width        Replay surface width (default 1024)")
	fmt.Println("  -height       Replay surface height (default 768)")
	fmt.Println("  -order-caps   The recorded session negotiated CAPSTYPE_ORDER (default true)")
	fmt.Println("  -glyph-level  Negotiated glyph support level")
	fmt.Println("  -log-level    Log level (debug, info, warn, error)")
	fmt.Println("  -version      Show version information")
	fmt.Println("  -help         Show this help message")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
}
