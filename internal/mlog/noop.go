package mlog

// NoopLogger discards everything. Used as the default Logger in tests and
// as the FromContext fallback.
type NoopLogger struct{}

func (NoopLogger) Info(args ...any)                  {}
func (NoopLogger) Infof(format string, args ...any)  {}
func (NoopLogger) Warn(args ...any)                  {}
func (NoopLogger) Warnf(format string, args ...any)  {}
func (NoopLogger) Error(args ...any)                 {}
func (NoopLogger) Errorf(format string, args ...any) {}
func (NoopLogger) Debug(args ...any)                 {}
func (NoopLogger) Debugf(format string, args ...any) {}
func (NoopLogger) Fatal(args ...any)                 {}
func (NoopLogger) Fatalf(format string, args ...any) {}

func (l NoopLogger) WithFields(fields ...any) Logger { return l }
func (NoopLogger) Sync() error                       { return nil }
