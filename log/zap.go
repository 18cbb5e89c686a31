package log

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap implements Logger on top of a sugared zap logger.
type Zap struct {
	level  Level
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	exit   func(int)
}

var _ Logger = (*Zap)(nil)

func NewZap(level Level, output io.Writer) *Zap {
	z := &Zap{level: level, exit: os.Exit}
	z.build(output)
	return z
}

func (z *Zap) build(output io.Writer) {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.AddSync(output), toZapLevel(z.level))
	z.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named("gsession")
	z.sugar = z.logger.Sugar()
}

func (z *Zap) SetOutput(output io.Writer) {
	z.build(output)
}

func (z *Zap) Log(level Level, msg string) {
	switch level {
	case DebugLevel:
		z.sugar.Debug(msg)
	case InfoLevel:
		z.sugar.Info(msg)
	case WarnLevel:
		z.sugar.Warn(msg)
	case ErrorLevel:
		z.sugar.Error(msg)
	case FatalLevel:
		z.fatal(msg)
	}
}

func (z *Zap) Debugf(format string, args ...any) {
	z.sugar.Debugf(format, args...)
}

func (z *Zap) Infof(format string, args ...any) {
	z.sugar.Infof(format, args...)
}

func (z *Zap) Warnf(format string, args ...any) {
	z.sugar.Warnf(format, args...)
}

func (z *Zap) Errorf(format string, args ...any) {
	z.sugar.Errorf(format, args...)
}

func (z *Zap) Fatalf(format string, args ...any) {
	z.fatal(fmt.Sprintf(format, args...))
}

func (z *Zap) WithStack(err any) {
	er := errors.Errorf("%v", err)
	z.fatal(fmt.Sprintf("\n%+v", er))
}

// zap's own Fatal exits through os.Exit unconditionally, tests swap exit
func (z *Zap) fatal(msg string) {
	if ce := z.logger.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(zap.String("level", FatalLevel.String()))
	}
	_ = z.logger.Sync()
	z.exit(1)
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
