package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
)

const defaultProbeTimeout = 2 * time.Second

// HealthProbes groups the dependency checks. A nil probe reports unhealthy.
type HealthProbes struct {
	Database ports.Probe
	Cache    ports.Probe
	RabbitMQ ports.Probe
}

// HealthService aggregates dependency probes into a HealthReport.
type HealthService struct {
	probes  HealthProbes
	timeout time.Duration
	log     zerolog.Logger
}

func NewHealthService(probes HealthProbes, timeout time.Duration, log zerolog.Logger) *HealthService {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthService{probes: probes, timeout: timeout, log: log}
}

// CheckHealth runs every probe concurrently. A probe that errors, panics or
// outlives the timeout reports false without affecting the others.
func (s *HealthService) CheckHealth(ctx context.Context) domain.HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		report = domain.HealthReport{Server: true}
	)
	run := func(name string, p ports.Probe, dst *bool) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			*dst = s.probe(ctx, name, p)
		}()
	}
	run("database", s.probes.Database, &report.Database)
	run("cache", s.probes.Cache, &report.Cache)
	run("rabbitmq", s.probes.RabbitMQ, &report.RabbitMQ)
	wg.Wait()

	return report
}

func (s *HealthService) probe(ctx context.Context, name string, p ports.Probe) bool {
	if p == nil {
		s.log.Warn().Str("dependency", name).Msg("health probe not configured")
		return false
	}

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic: %v", r)
			}
		}()
		errCh <- p.Check(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.log.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
			return false
		}
		return true
	case <-ctx.Done():
		s.log.Warn().Err(ctx.Err()).Str("dependency", name).Msg("health probe timed out")
		return false
	}
}
