package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huoshan017/gsession"
	"github.com/huoshan017/gsession/example/echo"
	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/packet/codec"
)

func main() {
	addr := flag.String("a", "127.0.0.1:9000", "listen address")
	workers := flag.Int("w", 2, "io worker count")
	codecName := flag.String("c", "msgpack", "body codec: json or msgpack")
	compress := flag.Bool("z", false, "snappy compress bodies")
	throttleTick := flag.Duration("t", 10*time.Millisecond, "echo batching period")
	reconnect := flag.Bool("r", true, "keep abandoned sessions for reconnection")
	flag.Parse()

	logger := log.DefaultLogger
	typ, err := codec.ParseType(*codecName)
	if err != nil || typ == codec.TypeProtobuf || typ == codec.TypeThrift {
		logger.Fatalf("unsupported codec %q", *codecName)
		return
	}
	handler := echo.NewServerHandler(codec.New(typ, *compress), logger)
	node, err := gsession.NewServer(*addr, handler,
		gsession.WithServerOptions(
			options.WithWorkerCount(*workers),
			options.WithReuseAddr(true),
			options.WithServerLogger(logger),
		),
		gsession.WithEngineOptions(
			options.WithMaxSessionCount(1024),
			options.WithUseSessionReconnect(*reconnect),
			options.WithThrottleTick(*throttleTick),
			options.WithLogger(logger),
		),
	)
	if err != nil {
		logger.Fatalf("%v", err)
		return
	}
	if err = node.Start(); err != nil {
		logger.Fatalf("%v", err)
		return
	}
	logger.Infof("listening on %s", node.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	if err = node.Shutdown(); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Infof("echoed %d messages", handler.Echoed())
}
