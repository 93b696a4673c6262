package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/hostwatch/hostwatch/server/internal/hub"
	"github.com/hostwatch/hostwatch/server/internal/sampler"
)

// Exposed metric names.
const (
	metricCPUUsage    = "hostwatch_cpu_usage_percent"
	metricMemUsed     = "hostwatch_memory_used_bytes"
	metricMemTotal    = "hostwatch_memory_total_bytes"
	metricInterval    = "hostwatch_sample_interval_seconds"
	metricTicks       = "hostwatch_sampler_ticks_total"
	metricFailures    = "hostwatch_sampler_failures_total"
	metricSubscribers = "hostwatch_hub_subscribers"
	metricPublished   = "hostwatch_hub_published_total"
	metricDropped     = "hostwatch_hub_dropped_total"
)

// metrics returns GET /metrics in the Prometheus text format.
func (a *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range buildFamilies(a.hub.Stats(), a.sampler.Stats()) {
		if err := enc.Encode(mf); err != nil {
			slog.Error("api: encode metric family failed", "family", mf.GetName(), "err", err)
			jsonErr(w, http.StatusInternalServerError, "encode metrics")
			return
		}
	}

	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// buildFamilies converts the current counters into metric families. The
// per-core and memory families are omitted until the first sample exists.
func buildFamilies(hs hub.Stats, ss sampler.Stats) []*dto.MetricFamily {
	var out []*dto.MetricFamily

	if ss.HasLast {
		cores := make([]*dto.Metric, 0, len(ss.Last.CPUs))
		for i, pct := range ss.Last.CPUs {
			cores = append(cores, &dto.Metric{
				Label: []*dto.LabelPair{{
					Name:  proto.String("core"),
					Value: proto.String(strconv.Itoa(i)),
				}},
				Gauge: &dto.Gauge{Value: proto.Float64(float64(pct))},
			})
		}
		if len(cores) > 0 {
			out = append(out, family(metricCPUUsage, "Per-core CPU utilization in percent.", dto.MetricType_GAUGE, cores...))
		}
		out = append(out,
			family(metricMemUsed, "Used memory in bytes.", dto.MetricType_GAUGE, gauge(float64(ss.Last.MemUsed))),
			family(metricMemTotal, "Total memory in bytes.", dto.MetricType_GAUGE, gauge(float64(ss.Last.MemTotal))),
		)
	}

	out = append(out,
		family(metricInterval, "Configured pause between host reads.", dto.MetricType_GAUGE, gauge(ss.Interval.Seconds())),
		family(metricTicks, "Sampler iterations started.", dto.MetricType_COUNTER, counter(float64(ss.Ticks))),
		family(metricFailures, "Sampler iterations that failed and were skipped.", dto.MetricType_COUNTER, counter(float64(ss.Failures))),
		family(metricSubscribers, "Live /sync subscriptions.", dto.MetricType_GAUGE, gauge(float64(hs.Subscribers))),
		family(metricPublished, "Samples published to the hub.", dto.MetricType_COUNTER, counter(float64(hs.Published))),
		family(metricDropped, "Samples overwritten in a mailbox before a client consumed them.", dto.MetricType_COUNTER, counter(float64(hs.Dropped))),
	)
	return out
}

func family(name, help string, typ dto.MetricType, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: metrics,
	}
}

func gauge(v float64) *dto.Metric {
	return &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func counter(v float64) *dto.Metric {
	return &dto.Metric{Counter: &dto.Counter{Value: proto.Float64(v)}}
}
