package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender logs through `tb.Log` so each line is attributed to the running test, including
// parallel subtests. Times are printed in the machine's timezone.
type testAppender struct {
	tb     testing.TB
	fields zapcore.Encoder
}

// NewTestAppender returns an appender writing tab separated entries to tb.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{
		tb:     tb,
		fields: zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true}),
	}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	parts := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		parts = append(parts, callerToString(&entry.Caller))
	}
	parts = append(parts, entry.Message)

	var err error
	if len(fields) > 0 {
		// an empty entry leaves only the fields in the encoded object
		buf, encodeErr := tapp.fields.EncodeEntry(zapcore.Entry{}, fields)
		if encodeErr == nil {
			parts = append(parts, buf.String())
			buf.Free()
		}
		err = encodeErr
	}
	tapp.tb.Log(strings.Join(parts, "\t"))
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}
