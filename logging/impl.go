package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used throughout the module. The plain, `f` and `w` variants
// mirror `zap.SugaredLogger` so a Logger can be handed to code written against zap.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebug and friends log at debug level if either the logger or the context has debug
	// logging enabled.
	CDebug(ctx context.Context, args ...interface{})
	CDebugf(ctx context.Context, template string, args ...interface{})
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	SetLevel(level Level)
	GetLevel() Level
	Level() zapcore.Level
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	AsZap() *zap.SugaredLogger
	Sync() error
}

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

// LogEntry embeds a zapcore Entry and slice of Fields.
type LogEntry struct {
	zapcore.Entry
	fields []zapcore.Field
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// AsZap builds a zap logger writing to stdout. Appenders that are themselves zap cores, such as
// the observer used in tests, are teed in.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := NewZapLoggerConfig()
	config.Level = GlobalLogLevel
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

func (imp *impl) enabled(level Level) bool {
	return GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get()
}

// emit builds and writes an entry when enabled. It must be called directly by the exported
// logging methods so the caller lookup lands on user code.
func (imp *impl) emit(level Level, enabled bool, msg string, fields []zapcore.Field) {
	if !enabled {
		return
	}
	entry := &LogEntry{fields: fields}
	entry.Time = time.Now()
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	entry.LoggerName = imp.name
	entry.Level = level.AsZap()
	entry.Message = msg
	entry.Caller = getCaller()

	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// toFields pairs up keysAndValues. A trailing key without a value is kept with an error value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		var key string
		if stringer, ok := keysAndValues[i].(fmt.Stringer); ok {
			key = stringer.String()
		} else {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG), fmt.Sprint(args...), nil)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG), fmt.Sprintf(template, args...), nil)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG), msg, toFields(keysAndValues))
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG) || IsDebugMode(ctx), fmt.Sprint(args...), nil)
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG) || IsDebugMode(ctx), fmt.Sprintf(template, args...), nil)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, imp.enabled(DEBUG) || IsDebugMode(ctx), msg, toFields(keysAndValues))
}

func (imp *impl) Info(args ...interface{}) {
	imp.emit(INFO, imp.enabled(INFO), fmt.Sprint(args...), nil)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.emit(INFO, imp.enabled(INFO), fmt.Sprintf(template, args...), nil)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.emit(INFO, imp.enabled(INFO), msg, toFields(keysAndValues))
}

func (imp *impl) Warn(args ...interface{}) {
	imp.emit(WARN, imp.enabled(WARN), fmt.Sprint(args...), nil)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.emit(WARN, imp.enabled(WARN), fmt.Sprintf(template, args...), nil)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.emit(WARN, imp.enabled(WARN), msg, toFields(keysAndValues))
}

func (imp *impl) Error(args ...interface{}) {
	imp.emit(ERROR, imp.enabled(ERROR), fmt.Sprint(args...), nil)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.emit(ERROR, imp.enabled(ERROR), fmt.Sprintf(template, args...), nil)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.emit(ERROR, imp.enabled(ERROR), msg, toFields(keysAndValues))
}

// getCaller skips itself, emit and the exported logging method.
func getCaller() zapcore.EntryCaller {
	const skipToLogCaller = 3
	var caller zapcore.EntryCaller
	var ok bool
	caller.PC, caller.File, caller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return caller
	}
	caller.Defined = true
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
