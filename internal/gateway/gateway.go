// Package gateway provides the request/response client for the external
// analytics service.
package gateway

import (
	"context"
	"encoding/json"
)

// Endpoint is a logical operation exposed by the analytics service.
type Endpoint string

const (
	Ingest           Endpoint = "ingest"
	Aggregate        Endpoint = "aggregate"
	Trend            Endpoint = "trend"
	AtRisk           Endpoint = "at-risk"
	CustomerAnalysis Endpoint = "customer-analysis"
	TrainAndPredict  Endpoint = "train-and-predict"
)

// Endpoints lists every logical endpoint.
var Endpoints = []Endpoint{Ingest, Aggregate, Trend, AtRisk, CustomerAnalysis, TrainAndPredict}

// DefaultPaths maps each endpoint to its route on the analytics service.
var DefaultPaths = map[Endpoint]string{
	Ingest:           "/upload",
	Aggregate:        "/aggregate",
	Trend:            "/visualize",
	AtRisk:           "/identify-risk",
	CustomerAnalysis: "/customer-analysis",
	TrainAndPredict:  "/predict-risk",
}

// Gateway issues one call to the analytics service. On success the decoded
// body is returned unchanged; every failure is a *ServiceError. Calls are
// not retried and not idempotent.
type Gateway interface {
	Call(ctx context.Context, endpoint Endpoint, payload any) (json.RawMessage, error)
}
