// Package main implements the RDP man-in-the-middle relay.
// It accepts client connections, dials the configured target server, and
// relays each session while tapping it for session recording.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rcarmo/rdp-mitm/internal/config"
	"github.com/rcarmo/rdp-mitm/internal/logging"
	"github.com/rcarmo/rdp-mitm/internal/metrics"
	"github.com/rcarmo/rdp-mitm/internal/mitm"
	"github.com/rcarmo/rdp-mitm/internal/proxy"
	"github.com/rcarmo/rdp-mitm/internal/recorder"
	"github.com/rcarmo/rdp-mitm/internal/security"
)

var (
	appName    = "RDP MITM Proxy"
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
	listenAddr    string
	targetAddr    string
	logLevel      string
	recordDir     string
	recordNetwork string
	metricsAddr   string
	desktopWidth  int
	desktopHeight int
}

//go:noinline
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("mitm-proxy", flag.ContinueOnError)
	listenAddr := fs.String("listen", "", "address to accept client connections on")
	targetAddr := fs.String("target", "", "RDP server address to relay to (host:port)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	recordDir := fs.String("record-dir", "", "directory to write session recordings to")
	recordNetwork := fs.String("record-sink", "", "websocket address of a remote recording collector")
	metricsAddr := fs.String("metrics-addr", ":9090", "address to serve /metrics on")
	desktopWidth := fs.Int("width", 1024, "desktop width advertised to the input observer")
	desktopHeight := fs.Int("height", 768, "desktop height advertised to the input observer")
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
		listenAddr:    strings.TrimSpace(*listenAddr),
		targetAddr:    strings.TrimSpace(*targetAddr),
		logLevel:      strings.TrimSpace(*logLevel),
		recordDir:     strings.TrimSpace(*recordDir),
		recordNetwork: strings.TrimSpace(*recordNetwork),
		metricsAddr:   strings.TrimSpace(*metricsAddr),
		desktopWidth:  *desktopWidth,
		desktopHeight: *desktopHeight,
	}, ""
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{LogLevel: args.logLevel})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if args.listenAddr != "" {
		cfg.Proxy.ListenAddr = args.listenAddr
	}
	if args.targetAddr != "" {
		cfg.Proxy.TargetAddr = args.targetAddr
	}
	if args.recordDir != "" {
		cfg.Recording.Directory = args.recordDir
	}
	if args.recordNetwork != "" {
		cfg.Recording.NetworkSinkAddr = args.recordNetwork
	}
	if cfg.Proxy.TargetAddr == "" {
		return fmt.Errorf("no target address configured: pass -target or set PROXY_TARGET_ADDR")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Security.TLSCertFile == "" || cfg.Security.TLSKeyFile == "" {
		return fmt.Errorf("no TLS certificate configured: the proxy terminates TLS itself, set TLS_CERT_FILE and TLS_KEY_FILE")
	}
	cert, err := security.LoadServerCertificate(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
	if err != nil {
		return fmt.Errorf("load TLS certificate: %w", err)
	}

	logging.SetLevelFromString(cfg.Logging.Level)
	baseLog := logging.With("mitm-proxy")

	registry := metrics.New(prometheus.DefaultRegisterer)
	go serveMetrics(args.metricsAddr, baseLog)

	if err := os.MkdirAll(cfg.Recording.Directory, 0o755); err != nil {
		return fmt.Errorf("create recording directory: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.Proxy.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Proxy.ListenAddr, err)
	}
	defer listener.Close()

	baseLog.Info().
		Str("listen", cfg.Proxy.ListenAddr).
		Str("target", cfg.Proxy.TargetAddr).
		Msg("accepting client connections")

	windowSize := mitm.WindowSize{Width: args.desktopWidth, Height: args.desktopHeight}

	for {
		clientConn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConnection(clientConn, cfg, cert, windowSize, registry, baseLog)
	}
}

// handleConnection dials the target server and relays the accepted client
// connection against it for the lifetime of one session. Dial or sink
// setup failures close the client connection and stop, since there is
// nothing useful left to relay.
func handleConnection(clientConn net.Conn, cfg *config.Config, cert tls.Certificate, windowSize mitm.WindowSize, registry *metrics.Registry, baseLog zerolog.Logger) {
	defer clientConn.Close()

	serverConn, err := net.DialTimeout("tcp", cfg.Proxy.TargetAddr, cfg.RDP.Timeout)
	if err != nil {
		baseLog.Error().Err(err).Str("target", cfg.Proxy.TargetAddr).Msg("dial target failed")
		return
	}
	defer serverConn.Close()

	sinks, err := buildSinks(cfg, baseLog)
	if err != nil {
		baseLog.Error().Err(err).Msg("build recording sinks failed")
		return
	}

	rec := recorder.New(recorder.SystemClock, baseLog, sinks...)
	session := proxy.NewSession(clientConn, serverConn, cert, windowSize, rec, registry, baseLog)

	if err := session.Run(); err != nil {
		baseLog.Warn().Err(err).Msg("session ended")
	}
}

// buildSinks opens one file sink per session, named by its UTC start time,
// plus a network sink when RECORDING_NETWORK_SINK_ADDR is configured.
func buildSinks(cfg *config.Config, baseLog zerolog.Logger) ([]recorder.Sink, error) {
	filename := fmt.Sprintf("%s/%s.rec", cfg.Recording.Directory, time.Now().UTC().Format("20060102T150405.000000000"))
	sinks := []recorder.Sink{recorder.NewFileSink(filename)}

	if cfg.Recording.NetworkSinkAddr != "" {
		netSink, err := recorder.DialNetworkSink(cfg.Recording.NetworkSinkAddr)
		if err != nil {
			baseLog.Warn().Err(err).Msg("network sink unavailable, recording to file only")
			return sinks, nil
		}
		sinks = append(sinks, netSink)
	}

	return sinks, nil
}

func serveMetrics(addr string, baseLog zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		baseLog.Error().Err(err).Msg("metrics server stopped")
	}
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: mitm-proxy -target host:port [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -listen         Address to accept client connections on (default 0.0.0.0:3389)")
	fmt.Println("  -target         RDP server address to relay to (required)")
	fmt.Println("  -log-level      Log level (debug, info, warn, error)")
	fmt.Println("  -record-dir     Directory to write session recordings to (default ./recordings)")
	fmt.Println("  -record-sink    Websocket address of a remote recording collector")
	fmt.Println("  -metrics-addr   Address to serve /metrics on (default :9090)")
	fmt.Println("  -width, -height Desktop dimensions advertised to the input observer")
	fmt.Println("  -version        Show version information")
	fmt.Println("  -help           Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: PROXY_LISTEN_ADDR, PROXY_TARGET_ADDR, LOG_LEVEL, RECORDING_DIRECTORY, RECORDING_NETWORK_SINK_ADDR")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
}
