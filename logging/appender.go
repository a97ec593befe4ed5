package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable, tab delimited output to the given writer.
type ConsoleAppender struct {
	io.Writer
	encoder zapcore.Encoder
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender creates a new appender that outputs to the input writer.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	return ConsoleAppender{
		Writer:  writer,
		encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig(zapcore.CapitalLevelEncoder)),
	}
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	_, err = appender.Writer.Write(buf.Bytes())
	return err
}

// FileAppender writes console formatted entries to a size rotated log file.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender creates an appender writing to path, keeping a couple of compressed backups once
// the file grows past maxSizeMB.
func NewFileAppender(path string, maxSizeMB int) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 2,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(file), file: file}
}

// Close closes the underlying log file.
func (appender *FileAppender) Close() error {
	return appender.file.Close()
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

func callerToString(caller *zapcore.EntryCaller) string {
	return caller.TrimmedPath()
}
