package main

import (
	"flag"
	"time"

	"github.com/huoshan017/gsession"
	"github.com/huoshan017/gsession/example/echo"
	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/packet/codec"
)

func main() {
	addr := flag.String("a", "127.0.0.1:9000", "server address")
	count := flag.Int64("n", 100, "echoes to wait for")
	codecName := flag.String("c", "msgpack", "body codec: json or msgpack")
	compress := flag.Bool("z", false, "snappy compress bodies")
	flag.Parse()

	logger := log.DefaultLogger
	typ, err := codec.ParseType(*codecName)
	if err != nil || typ == codec.TypeProtobuf || typ == codec.TypeThrift {
		logger.Fatalf("unsupported codec %q", *codecName)
		return
	}
	handler := echo.NewClientHandler(codec.New(typ, *compress), *count, logger)
	node, err := gsession.NewClient(handler,
		gsession.WithServerOptions(
			options.WithWorkerCount(1),
			options.WithDialRetry(5, 200*time.Millisecond),
			options.WithServerLogger(logger),
		),
		gsession.WithEngineOptions(
			options.WithUseSessionReconnect(true),
			options.WithWorkerUpdateTick(20*time.Millisecond),
			options.WithLogger(logger),
		),
	)
	if err != nil {
		logger.Fatalf("%v", err)
		return
	}
	if _, err = node.Connect(*addr, 1); err != nil {
		logger.Fatalf("%v", err)
		return
	}
	if err = node.Start(); err != nil {
		logger.Fatalf("%v", err)
		return
	}
	node.Wait()
	logger.Infof("received %d echoes, last round trip %v", handler.Received(), handler.LastRoundTrip())
	if err = node.Shutdown(); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
