package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/VoltDB/voltdb-sub009/clock"
	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engine"
	"github.com/VoltDB/voltdb-sub009/stream"
	"github.com/VoltDB/voltdb-sub009/toptest"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run one partition engine against an in-memory top end until interrupted",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "site-id", Value: 1},
		&cli.IntFlag{Name: "partition-id", Value: 0},
		&cli.StringFlag{Name: "export-table", Value: "orders", Usage: "table name to open an export stream for"},
	},
	Action: runServe,
}

func runServe(ctx *cli.Context) error {
	log := elog.New("cmd.serve")

	top := toptest.NewMemory(0)
	clk := clock.New()
	e := engine.New(resolvedConfig.Engine, ctx.Int64("site-id"), int32(ctx.Int("partition-id")), 0, top, clk)

	s := e.NewStream(false, ctx.String("export-table"), stream.Schema{VisibleColumns: 1})

	if resolvedConfig.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(e.Metrics().Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: resolvedConfig.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server exited", "err", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "addr", resolvedConfig.MetricsAddr)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("engine serving", "siteID", ctx.Int64("site-id"), "partitionID", ctx.Int("partition-id"))

	ticker := time.NewTicker(time.Duration(resolvedConfig.Engine.FlushIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	var lastCommittedSpHandle int64
	for {
		select {
		case <-runCtx.Done():
			fmt.Println("voltee: shutting down")
			return nil
		case now := <-ticker.C:
			lastCommittedSpHandle++
			txnID := lastCommittedSpHandle
			row := stream.Row{
				TxnID:          txnID,
				SequenceNumber: txnID,
				PartitionID:    int32(ctx.Int("partition-id")),
				SiteID:         int32(ctx.Int64("site-id")),
				Visible:        [][]byte{[]byte(fmt.Sprintf("tick-%d", txnID))},
				VisibleNull:    []bool{false},
			}
			if _, err := s.AppendTuple(txnID, txnID, row); err != nil {
				log.Error("append failed", "err", err)
			} else {
				s.Commit(txnID, txnID)
			}
			e.Tick(now.UnixMilli(), lastCommittedSpHandle)
			log.Debug("tick", "lastCommittedSpHandle", lastCommittedSpHandle)
		}
	}
}
