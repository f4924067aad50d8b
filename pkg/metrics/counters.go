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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ExtractTotal counts probe extractions, by outcome.
	ExtractTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extract",
			Name:        "total",
			Help:        "The number of probe data extractions.",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)
	// PlanTotal counts disk layout plans, by table label and outcome.
	PlanTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "plan",
			Name:        "total",
			Help:        "The number of disk layouts planned.",
			ConstLabels: constLabels,
		},
		[]string{"label", "result"},
	)
)

func init() {
	prometheus.MustRegister(ExtractTotal, PlanTotal)
}
