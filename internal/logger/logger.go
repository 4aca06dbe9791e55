// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// The service writes lifecycle and error events as JSON to stdout, which is
// what the fleet's log agent ships.  When running in an interactive TTY the
// stdout core switches to the console encoder.  When `LOG_DIR` is set, the
// same events are teed to `<dir>/YYYY-MM-DD.log`, with rotation,
// compression, and retention handled by Lumberjack.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Dir: s.Log.Dir, Debug: s.Debug, TTY: runningInTTY()})
//	if err != nil { … }
//	log.Infow("listening", "addr", addr)
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Oxford commas, two spaces after periods.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects sinks and level.
type Options struct {
	Dir   string    // optional rotating file sink directory.
	Debug bool      // debug level instead of info.
	TTY   bool      // console encoder on the stdout core.
	Out   io.Writer // stdout core destination; nil means os.Stdout.
}

// New returns a *zap.SugaredLogger per opts and installs it as the
// process-wide default via zap.ReplaceGlobals.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	enc := zapcore.NewJSONEncoder(encCfg)
	if opts.TTY {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(out), level)}

	errSink := zapcore.AddSync(os.Stderr)
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, time.Now().Format("2006-01-02")+".log"),
			MaxSize:    50, // MB
			MaxBackups: 7,  // keep last seven files
			MaxAge:     14, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileSink, level))
		errSink = fileSink
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(errSink),
	).Sugar()

	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "tty", opts.TTY, "file", opts.Dir != "", "debug", opts.Debug)
	return z, nil
}
