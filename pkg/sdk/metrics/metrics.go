// SPDX-License-Identifier: Apache-2.0
/*
Copyright (C) 2024 The Falco Authors.

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

// Package metrics collects the call statistics of extension functions, and
// lets extensions define their own metrics. Metrics live in the memory of
// the backend process, and are exposed through the pgext_metrics() SQL
// function in the Prometheus text format.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "pgext"

// Labels represents a set of metric labels.
type Labels = prometheus.Labels

// Registry collects the metrics of one extension.
type Registry struct {
	reg      *prometheus.Registry
	calls    *prometheus.CounterVec
	aborts   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRegistry returns a registry with the built-in call metrics of the
// given extension.
func NewRegistry(extension string) *Registry {
	constLabels := prometheus.Labels{"extension": extension}
	r := &Registry{
		reg: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "function_calls_total",
			Help:        "Number of calls of extension functions.",
			ConstLabels: constLabels,
		}, []string{"function"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "function_aborts_total",
			Help:        "Number of calls of extension functions that raised an error.",
			ConstLabels: constLabels,
		}, []string{"function", "sqlstate"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "function_duration_seconds",
			Help:        "Duration of the calls of extension functions.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 7),
		}, []string{"function"}),
	}
	r.reg.MustRegister(r.calls, r.aborts, r.duration)
	return r
}

// Observe records a call of fn that lasted d. A non-empty sqlstate means
// that the call was aborted with that error code.
func (r *Registry) Observe(fn string, d time.Duration, sqlstate string) {
	r.calls.WithLabelValues(fn).Inc()
	r.duration.WithLabelValues(fn).Observe(d.Seconds())
	if sqlstate != "" {
		r.aborts.WithLabelValues(fn, sqlstate).Inc()
	}
}

// Calls returns the number of recorded calls of fn.
func (r *Registry) Calls(fn string) float64 {
	return counterValue(r.calls.WithLabelValues(fn))
}

// Aborts returns the number of recorded calls of fn aborted with sqlstate.
func (r *Registry) Aborts(fn, sqlstate string) float64 {
	return counterValue(r.aborts.WithLabelValues(fn, sqlstate))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// NewCounter registers a counter defined by the extension.
func (r *Registry) NewCounter(name, help string) (prometheus.Counter, error) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	if err := r.reg.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", name, err)
	}
	return c, nil
}

// NewCounterVec registers a counter with labels defined by the extension.
func (r *Registry) NewCounterVec(name, help string, labelNames []string) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labelNames)
	if err := r.reg.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", name, err)
	}
	return c, nil
}

// NewGauge registers a gauge defined by the extension.
func (r *Registry) NewGauge(name, help string) (prometheus.Gauge, error) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	if err := r.reg.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge %q: %w", name, err)
	}
	return g, nil
}

// NewGaugeVec registers a gauge with labels defined by the extension.
func (r *Registry) NewGaugeVec(name, help string, labelNames []string) (*prometheus.GaugeVec, error) {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labelNames)
	if err := r.reg.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge %q: %w", name, err)
	}
	return g, nil
}

// Text renders all the metrics in the Prometheus text format, sorted by
// metric name.
func (r *Registry) Text() (string, error) {
	mfs, err := r.reg.Gather()
	if err != nil {
		return "", err
	}
	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
	var b strings.Builder
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
