// Package logger routes treeidx events into logrus or zap.
//
// *slog.Logger implements treeidx.Logger without an adapter.
//
// Example with zap:
//
//	import (
//	    "github.com/alexhholmes/treeidx"
//	    "github.com/alexhholmes/treeidx/logger"
//	    "go.uber.org/zap"
//	)
//
//	func main() {
//	    zapLogger, _ := zap.NewProduction()
//
//	    idx, err := treeidx.Open("orders.idx", treeidx.WithLogger(logger.NewZap(zapLogger)))
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer idx.Close()
//	}
package logger

// Component names index events in the wrapped logger's output.
const Component = "treeidx"
