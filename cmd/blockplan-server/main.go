package main

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	blockplan "github.com/blockplan-io/blockplan"
	"github.com/blockplan-io/blockplan/cmd/blockplan-server/server"
	"github.com/blockplan-io/blockplan/pkg/metrics"
	"github.com/blockplan-io/blockplan/utils/log"
)

func main() {
	collector, err := metrics.NewBlockplanCollector(server.ProbeDataPath)
	if err != nil {
		log.Fatalf("cannot build metrics collector: %v", err)
	}
	prometheus.MustRegister(collector)

	e := echo.New()
	e.GET("/storage/extract", server.Extract)
	e.POST("/storage/plan", server.Plan)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Logger.Fatal(e.Start(blockplan.DefaultServerAddr))
}
