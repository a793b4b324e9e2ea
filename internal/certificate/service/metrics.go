package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	certificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attest_certificates_issued_total",
		Help: "Total number of certificates issued",
	})
	mintsPrepared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attest_mints_prepared_total",
		Help: "Total number of mint transactions prepared",
	})
	mintsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attest_mints_completed_total",
		Help: "Total number of certificates that reached the minted state",
	})
	chainFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attest_chain_failures_total",
		Help: "Chain service failures by minting phase",
	}, []string{"phase"})
)
