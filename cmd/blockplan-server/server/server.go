package server

import (
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	blockplan "github.com/blockplan-io/blockplan"
	"github.com/blockplan-io/blockplan/pkg/configuration"
	"github.com/blockplan-io/blockplan/pkg/device"
	"github.com/blockplan-io/blockplan/pkg/metrics"
	"github.com/blockplan-io/blockplan/pkg/probe"
	"github.com/blockplan-io/blockplan/pkg/ptable"
	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// ProbeDataPath is where handlers read the probe snapshot from; the main
// package may point it elsewhere before starting the server.
var ProbeDataPath = blockplan.DefaultProbeDataPath

type storageDocument struct {
	Storage struct {
		Version int                   `json:"version"`
		Config  []*storageconfig.Item `json:"config"`
	} `json:"storage"`
}

type diskPlanResponse struct {
	Disk    string   `json:"disk"`
	Path    string   `json:"path,omitempty"`
	Script  string   `json:"script"`
	Wipes   []string `json:"wipes"`
	Deleted []string `json:"deleted,omitempty"`
}

// Extract derives the storage configuration from the node's probe data.
func Extract(c echo.Context) error {
	raw, err := os.ReadFile(ProbeDataPath)
	if err != nil {
		metrics.ExtractTotal.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := probe.Load(raw)
	if err != nil {
		metrics.ExtractTotal.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	strict := configuration.StrictExtract()
	if v := c.QueryParam("strict"); v != "" {
		strict, _ = strconv.ParseBool(v)
	}
	cfg, err := probe.Extract(data, strict)
	if err != nil {
		metrics.ExtractTotal.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	metrics.ExtractTotal.WithLabelValues("success").Inc()

	var doc storageDocument
	doc.Storage.Version = blockplan.StorageConfigVersion
	doc.Storage.Config = cfg.Items()
	return c.JSON(http.StatusOK, doc)
}

// Plan computes the partition tables for a posted storage configuration.
func Plan(c echo.Context) error {
	var doc storageDocument
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sectorBytes := uint64(512)
	forced := false
	if v := c.QueryParam("sector-size"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid sector-size")
		}
		sectorBytes = parsed
		forced = true
	}

	cfg := storageconfig.NewConfig(doc.Storage.Config)
	sectorSizes := map[string]uint64{}
	if !forced {
		// probe each named disk for its logical sector size so 4096-byte
		// disks do not plan with 512-byte geometry
		for _, it := range cfg.Items() {
			if it.Type == storageconfig.Disk && it.Path != "" {
				sectorSizes[it.ID] = device.SectorSizeOrDefault(it.Path)
			}
		}
	}
	var trees []*storageconfig.Tree
	for _, it := range cfg.Items() {
		tree, err := storageconfig.BuildConfigTree(it.ID, cfg)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		trees = append(trees, tree)
	}
	merged := storageconfig.NewConfig(storageconfig.MergeConfigTrees(trees))

	plans, err := ptable.PlanConfig(merged, sectorBytes, sectorSizes, nil, nil)
	if err != nil {
		metrics.PlanTotal.WithLabelValues("", "error").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	resp := make([]diskPlanResponse, 0, len(plans))
	for _, plan := range plans {
		metrics.PlanTotal.WithLabelValues(plan.Layout.Table.Label(), "success").Inc()
		entry := diskPlanResponse{
			Disk:   plan.Disk.ID,
			Path:   plan.Disk.Path,
			Script: plan.Layout.Table.Render(),
		}
		for _, e := range plan.Layout.Table.Entries() {
			entry.Wipes = append(entry.Wipes,
				strconv.Itoa(e.Number)+":"+plan.Layout.Wipes[e.Start])
		}
		for _, deleted := range plan.Layout.Deleted {
			entry.Deleted = append(entry.Deleted, deleted.Node)
		}
		resp = append(resp, entry)
	}
	return c.JSON(http.StatusOK, resp)
}
