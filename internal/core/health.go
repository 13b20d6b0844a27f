package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the whole /health request.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingProbe struct {
	name string
	p    Pinger
}

// NewPingProbe adapts a Pinger such as the database pool into a HealthProbe.
func NewPingProbe(name string, p Pinger) HealthProbe {
	return pingProbe{name: name, p: p}
}

func (pp pingProbe) Name() string                    { return pp.name }
func (pp pingProbe) Check(ctx context.Context) error { return pp.p.Ping(ctx) }

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently and answers 200 when all pass
// within healthCheckTimeout, 503 otherwise. A probe that has not returned by
// the deadline is reported as timed out.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy"}
	if s.Config != nil {
		resp.Version = s.Config.Build.Version
	}
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	type result struct {
		idx int
		err error
	}
	// Buffered so late probes never block after the handler returns.
	results := make(chan result, len(s.HealthProbes))
	for i, probe := range s.HealthProbes {
		go func() {
			defer func() {
				if rvr := recover(); rvr != nil {
					results <- result{idx: i, err: fmt.Errorf("probe panicked: %v", rvr)}
				}
			}()
			results <- result{idx: i, err: probe.Check(ctx)}
		}()
	}

	errs := make([]error, len(s.HealthProbes))
	done := make([]bool, len(s.HealthProbes))
collect:
	for range s.HealthProbes {
		select {
		case res := <-results:
			errs[res.idx], done[res.idx] = res.err, true
		case <-ctx.Done():
			break collect
		}
	}

	resp.Components = make(map[string]componentStatus, len(s.HealthProbes))
	for i, probe := range s.HealthProbes {
		st := componentStatus{Status: "healthy"}
		switch {
		case !done[i]:
			st = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case errs[i] != nil:
			st = componentStatus{Status: "unhealthy", Message: errs[i].Error()}
		}
		if st.Status != "healthy" {
			resp.Status = "unhealthy"
		}
		resp.Components[probe.Name()] = st
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}
