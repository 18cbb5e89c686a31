package log

import "io"

type discardLogger struct{}

func (discardLogger) Log(Level, string)          {}
func (discardLogger) Debugf(string, ...any)      {}
func (discardLogger) Infof(string, ...any)       {}
func (discardLogger) Warnf(string, ...any)       {}
func (discardLogger) Errorf(string, ...any)      {}
func (discardLogger) Fatalf(string, ...any)      {}
func (discardLogger) WithStack(any)              {}
func (discardLogger) SetOutput(output io.Writer) {}
