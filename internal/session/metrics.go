// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package session

import "github.com/prometheus/client_golang/prometheus"

var (
	filesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "epb_client_files_sent_total",
		Help: "Files confirmed received by a paired server, by server name.",
	}, []string{"server"})

	filesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "epb_client_files_skipped_total",
		Help: "Changed files a paired server did not confirm receiving, by server name.",
	}, []string{"server"})

	passErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "epb_client_pass_errors_total",
		Help: "Sync pass failures, by server name.",
	}, []string{"server"})
)

func init() {
	prometheus.MustRegister(filesSentTotal, filesSkippedTotal, passErrorsTotal)
}

func recordFilesSent(server string, n int) {
	if n > 0 {
		filesSentTotal.WithLabelValues(server).Add(float64(n))
	}
}

func recordFilesSkipped(server string, n int) {
	if n > 0 {
		filesSkippedTotal.WithLabelValues(server).Add(float64(n))
	}
}

func recordPassError(server string) {
	passErrorsTotal.WithLabelValues(server).Inc()
}
