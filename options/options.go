package options

import (
	"github.com/huoshan017/gsession/log"
)

// Options are shared by the engine and the stream backend
type Options struct {
	logger log.Logger
}

func (options *Options) GetLogger() log.Logger {
	if options.logger == nil {
		return log.DefaultLogger
	}
	return options.logger
}

func (options *Options) SetLogger(logger log.Logger) {
	options.logger = logger
}
