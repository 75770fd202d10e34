package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func familyNames(g prometheus.Gatherer) map[string]bool {
	out := make(map[string]bool)
	families, err := g.Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		out[f.GetName()] = true
	}
	return out
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ratings"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)
			manager.periodsClosed.Add(2)
			manager.resultsRejected.WithLabelValues("sealed_period").Inc()

			Convey("Then metrics should be registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				names := familyNames(registry)
				So(names["test_ratings_periods_closed_total"], ShouldBeTrue)
				So(names["test_ratings_results_rejected_total"], ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "glicko2")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording engine metrics", func() {
			So(func() {
				RecordPlayerRegistered()
				UpdatePlayersTotal(3)
				RecordResultRegistered()
				RecordResultRejected("unknown_player")
				UpdatePendingResults(4)
				RecordPeriodsClosed(2)
				RecordPeriodsClosed(0)
				RecordPeriodsClosed(-1)
				RecordConvergenceFailure()
				RecordCloseDuration(1.5)
				RecordProjectionLatency(0.02)
			}, ShouldNotPanic)
		})

		Convey("When recording ingestion metrics", func() {
			So(func() {
				RecordReportIngested()
				RecordReportDuplicate()
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(0.3)
				RecordWorkerError()
				RecordStandingsPublished(3)
			}, ShouldNotPanic)

			Convey("Then the custom registry should expose them", func() {
				names := familyNames(GetRegistry())
				So(names["glicko2_engine_players_registered_total"], ShouldBeTrue)
				So(names["glicko2_engine_reports_ingested_total"], ShouldBeTrue)
				So(names["glicko2_engine_standings_size"], ShouldBeTrue)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a destination file", t, func() {
		path := filepath.Join(t.TempDir(), "metrics.prom")
		RecordPlayerRegistered()

		Convey("When the registry is exported", func() {
			err := WriteTextfile(path)

			Convey("Then the file should hold the text exposition", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(data), "glicko2_engine_players_registered_total"), ShouldBeTrue)
			})
		})

		Convey("When the path is empty", func() {
			So(errors.Is(WriteTextfile(""), ErrExportFailed), ShouldBeTrue)
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(path, "missing", "metrics.prom"))
			So(errors.Is(err, ErrExportFailed), ShouldBeTrue)
		})
	})
}
