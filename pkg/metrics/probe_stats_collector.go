/*
  Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blockplan-io/blockplan/pkg/probe"
)

const (
	probeSubSystem string = "probe_stats"
)

var (
	blockdevTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, probeSubSystem, "blockdev_total"),
		"The number of probed block devices.",
		[]string{"devtype"},
		constLabels,
	)
	itemTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, probeSubSystem, "item_total"),
		"The number of extracted storage configuration items.",
		[]string{"type"},
		constLabels,
	)
)

type probeStatsCollector struct {
	blockdevDesc typedFactorDesc
	itemDesc     typedFactorDesc
	probePath    string
}

func newProbeStatsCollector(probePath string) (Collector, error) {
	return &probeStatsCollector{
		blockdevDesc: typedFactorDesc{desc: blockdevTotalDesc, valueType: prometheus.GaugeValue},
		itemDesc:     typedFactorDesc{desc: itemTotalDesc, valueType: prometheus.GaugeValue},
		probePath:    probePath,
	}, nil
}

func (p *probeStatsCollector) Name() string {
	return "probe_stats"
}

func (p *probeStatsCollector) Update(ch chan<- prometheus.Metric) error {
	raw, err := os.ReadFile(p.probePath)
	if err != nil {
		return ErrNoData
	}
	data, err := probe.Load(raw)
	if err != nil {
		return err
	}

	byDevtype := make(map[string]int)
	for _, bd := range data.Blockdev {
		byDevtype[bd.DevType()]++
	}
	for devtype, count := range byDevtype {
		ch <- p.blockdevDesc.mustNewConstMetric(float64(count), devtype)
	}

	cfg, err := probe.Extract(data, false)
	if err != nil {
		return err
	}
	byType := make(map[string]int)
	for _, it := range cfg.Items() {
		byType[string(it.Type)]++
	}
	for itemType, count := range byType {
		ch <- p.itemDesc.mustNewConstMetric(float64(count), itemType)
	}
	return nil
}
