package geocontrol

import (
	"context"
	"fmt"
	"maps"
	"time"
)

const (
	statusOnline   = "online"
	statusDegraded = "degraded"
)

// SystemStatus is the response of the status endpoint.
type SystemStatus struct {
	Status           string         `json:"status"`
	Time             time.Time      `json:"time"`
	Uptime           string         `json:"uptime"`
	GitHash          string         `json:"gitHash"`
	OrganisationName string         `json:"organisationName"`
	ApplicationName  string         `json:"applicationName"`
	InstanceName     string         `json:"instanceName"`
	Environment      Environment    `json:"environment"`
	Web              HTTP           `json:"web"`
	Database         dbStatus       `json:"database"`
	Contexts         map[string]any `json:"contexts"`
	Failures         map[string]any `json:"failures"`
}

type dbStatus struct {
	Postgres
	Status string `json:"status"`
}

func getSystemStatus(ctx context.Context, di *Container) SystemStatus {
	status := SystemStatus{
		Status:           statusOnline,
		Time:             time.Now(),
		Uptime:           time.Since(di.startedAt).Round(time.Second).String(),
		GitHash:          gitHash(),
		OrganisationName: di.Config.OrganisationName,
		ApplicationName:  di.Config.ApplicationName,
		InstanceName:     di.Config.InstanceName,
		Environment:      di.Config.Environment,
		Web:              di.Config.HTTP,
		Database:         dbStatus{Postgres: di.Config.Postgres, Status: "disabled"},
		Contexts:         map[string]any{},
		Failures:         map[string]any{},
	}

	if di.PGx != nil {
		status.Database.Status = statusOnline

		if err := di.PGx.Ping(ctx); err != nil {
			status.Database.Status = fmt.Errorf("err: %w", err).Error()
			status.Status = statusDegraded
			status.Failures["database"] = err.Error()
		}
	}

	di.mu.Lock()
	fns := maps.Clone(di.statusFns)
	di.mu.Unlock()

	for name, fn := range fns {
		status.Contexts[name] = fn(ctx)
	}

	return status
}
