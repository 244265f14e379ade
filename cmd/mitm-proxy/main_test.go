package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlagsWithArgs(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedAction string
		checkArgs      func(t *testing.T, args parsedArgs)
	}{
		{
			name:           "no args returns empty args",
			args:           []string{},
			expectedAction: "",
			checkArgs: func(t *testing.T, args parsedArgs) {
				assert.Empty(t, args.listenAddr)
				assert.Empty(t, args.targetAddr)
				assert.Equal(t, ":9090", args.metricsAddr)
				assert.Equal(t, 1024, args.desktopWidth)
				assert.Equal(t, 768, args.desktopHeight)
			},
		},
		{
			name: "listen and target args",
			args: []string{"-listen", " 0.0.0.0:3389 ", "-target", " 10.0.0.5:3389 "},
			checkArgs: func(t *testing.T, args parsedArgs) {
				assert.Equal(t, "0.0.0.0:3389", args.listenAddr)
				assert.Equal(t, "10.0.0.5:3389", args.targetAddr)
			},
		},
		{
			name: "record and metrics flags",
			args: []string{"-record-dir", "/tmp/recs", "-record-sink", "ws://collector:9000", "-metrics-addr", ":9999"},
			checkArgs: func(t *testing.T, args parsedArgs) {
				assert.Equal(t, "/tmp/recs", args.recordDir)
				assert.Equal(t, "ws://collector:9000", args.recordNetwork)
				assert.Equal(t, ":9999", args.metricsAddr)
			},
		},
		{
			name: "desktop dimensions",
			args: []string{"-width", "1920", "-height", "1080"},
			checkArgs: func(t *testing.T, args parsedArgs) {
				assert.Equal(t, 1920, args.desktopWidth)
				assert.Equal(t, 1080, args.desktopHeight)
			},
		},
		{
			name:           "help flag returns help action",
			args:           []string{"-help"},
			expectedAction: "help",
			checkArgs:      func(t *testing.T, args parsedArgs) {},
		},
		{
			name:           "version flag returns version action",
			args:           []string{"-version"},
			expectedAction: "version",
			checkArgs:      func(t *testing.T, args parsedArgs) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldStdout := os.Stdout
			r, w, _ := os.Pipe()
			os.Stdout = w

			args, action := parseFlagsWithArgs(tt.args)

			os.Stdout = oldStdout
			_ = w.Close()
			_ = r.Close()

			assert.Equal(t, tt.expectedAction, action)
			if tt.checkArgs != nil {
				tt.checkArgs(t, args)
			}
		})
	}
}

func TestRun_NoTargetConfigured(t *testing.T) {
	err := run(parsedArgs{listenAddr: "127.0.0.1:0"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no target address")
}

func TestShowHelp(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	showHelp()

	os.Stdout = oldStdout
	_ = w.Close()

	output := make([]byte, 2048)
	n, _ := r.Read(output)
	captured := string(output[:n])

	assert.Contains(t, captured, "USAGE:")
	assert.Contains(t, captured, "-target")
	assert.Contains(t, captured, "ENVIRONMENT VARIABLES:")
}

func TestShowVersion(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	showVersion()

	os.Stdout = oldStdout
	_ = w.Close()

	output := make([]byte, 256)
	n, _ := r.Read(output)
	assert.Contains(t, string(output[:n]), appName)
}
