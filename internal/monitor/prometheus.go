// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

// Exporter publishes the training progress as Prometheus gauges.
type Exporter struct {
	registry *prometheus.Registry

	globalStep   prometheus.Gauge
	learningRate prometheus.Gauge
	metrics      *prometheus.GaugeVec

	server   *http.Server
	listener net.Listener
}

// NewExporter creates the gauges in a registry of their own, labeled with the algorithm being trained.
func NewExporter(algorithm string) *Exporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"algorithm": algorithm}
	return &Exporter{
		registry: registry,
		globalStep: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "relembed_global_step",
			Help:        "The current training global step",
			ConstLabels: labels,
		}),
		learningRate: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "relembed_learning_rate",
			Help:        "The current learning rate",
			ConstLabels: labels,
		}),
		metrics: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "relembed_train_metric",
			Help:        "The latest value of the train metrics (loss, pos-dist, neg-dist)",
			ConstLabels: labels,
		}, []string{"metric"}),
	}
}

// Registry with the exporter gauges.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the gauges in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Update sets the gauges. Metrics are keyed by their short name.
func (e *Exporter) Update(globalStep int, learningRate float64, metrics map[string]float64) {
	e.globalStep.Set(float64(globalStep))
	e.learningRate.Set(learningRate)
	for name, value := range metrics {
		e.metrics.WithLabelValues(name).Set(value)
	}
}

// Attach updates the gauges every n steps of the loop. learningRateFn returns the current learning rate.
func (e *Exporter) Attach(loop *train.Loop, n int, learningRateFn func() float64) {
	train.EveryNSteps(loop, n, "prometheus", 0, func(loop *train.Loop, metrics []*tensors.Tensor) error {
		values := make(map[string]float64, len(metrics))
		for ii, desc := range loop.Trainer.TrainMetrics() {
			if ii < len(metrics) {
				values[desc.ShortName()] = scalarValue(metrics[ii])
			}
		}
		e.Update(loop.LoopStep, learningRateFn(), values)
		return nil
	})
}

// Serve starts an HTTP server on addr with the gauges on "/metrics". It returns once listening.
func (e *Exporter) Serve(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %q for metrics", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	e.listener = listener
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("Metrics server on %q failed: %+v", addr, err)
		}
	}()
	klog.Infof("Serving Prometheus metrics on http://%s/metrics", listener.Addr())
	return nil
}

// Addr returns the address the server is listening on, or nil if not serving.
func (e *Exporter) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Close stops the HTTP server, if one was started.
func (e *Exporter) Close() error {
	if e.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.server.Shutdown(ctx)
}
