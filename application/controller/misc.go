package controller

import (
	"net/http"

	"idgate.io/application/interfaces"
	"idgate.io/infrastructure/env"
	server_response "idgate.io/infrastructure/serverResponse"
)

// HealthProbe reports the availability of each loaded model or detector.
type HealthProbe func() map[string]bool

var healthProbe HealthProbe

func InjectHealthProbe(probe HealthProbe) {
	healthProbe = probe
}

func Health(ctx *interfaces.ApplicationContext[any]) {
	models := map[string]bool{}
	if healthProbe != nil {
		models = healthProbe()
	}
	degraded := false
	for _, healthy := range models {
		if !healthy {
			degraded = true
			break
		}
	}
	status := "healthy"
	if degraded {
		status = "degraded"
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "health check", map[string]any{
		"service": env.Current().AppName,
		"status":  status,
		"models":  models,
	}, nil)
}
