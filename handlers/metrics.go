package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chargesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_charges_created_total",
		Help: "PIX charges successfully created at the provider",
	}, []string{"provider"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_webhook_events_total",
		Help: "Inbound webhook requests by outcome",
	}, []string{"provider", "outcome"})

	depositsConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_deposits_confirmed_total",
		Help: "Deposits inserted into the bancas ledger, by confirmation source",
	}, []string{"source"})
)
