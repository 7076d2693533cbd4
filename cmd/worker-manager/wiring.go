// cmd/worker-manager/wiring.go
package main

import (
	"context"
	"errors"
	"fmt"

	awsclient "blood-alert-workers/internal/common/aws"
	"blood-alert-workers/internal/common/config"
	"blood-alert-workers/internal/common/database"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/engine/dispatch"
	"blood-alert-workers/internal/engine/matcher"
	"blood-alert-workers/internal/engine/orchestrator"
	"blood-alert-workers/internal/store/cache"
	"blood-alert-workers/internal/store/postgres"
	"blood-alert-workers/internal/store/search"
	"blood-alert-workers/pkg/registry"
)

// patientDirectory is the configured directory backend plus the connections it owns.
type patientDirectory struct {
	matcher.Directory
	pingers []database.Pinger
	closers []func() error
}

func (d *patientDirectory) Pingers() []database.Pinger { return d.pingers }

func (d *patientDirectory) Close() {
	for _, c := range d.closers {
		_ = c()
	}
}

// buildDirectory selects the postgres or elasticsearch directory and wraps it in the redis cache when enabled.
func buildDirectory(cfg *config.Config, pg *database.PostgresClient, log logger.Logger) (*patientDirectory, error) {
	dir := &patientDirectory{}

	switch cfg.Directory.Backend {
	case config.DirectoryBackendElasticsearch:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return nil, err
		}
		dir.Directory = search.NewDirectory(es.Client, cfg.Database.Elasticsearch.PatientIndex, search.DefaultPageSize)
		dir.pingers = append(dir.pingers, es)
	case config.DirectoryBackendPostgres, "":
		dir.Directory = postgres.NewDirectory(pg.DB)
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
	}

	if cfg.Directory.CacheEnabled {
		rc := database.NewRedis(cfg.Database.Redis)
		dir.Directory = cache.NewCachedDirectory(dir.Directory, rc.Client, config.GetDuration(cfg.Directory.CacheTTL), log)
		dir.pingers = append(dir.pingers, rc)
		dir.closers = append(dir.closers, rc.Close)
	}

	log.Info("patient directory ready", map[string]interface{}{
		"backend": cfg.Directory.Backend,
		"cache":   cfg.Directory.CacheEnabled,
	})
	return dir, nil
}

// buildTemplates parses the urgent and escalation bodies from the registry.
func buildTemplates(reg *registry.ActivityRegistry) (orchestrator.Templates, error) {
	var out orchestrator.Templates
	for id, dst := range map[string]**dispatch.Template{
		registry.TemplateUrgent:     &out.Urgent,
		registry.TemplateEscalation: &out.Escalation,
	} {
		t, ok := reg.Template(id)
		if !ok {
			return out, fmt.Errorf("template %q not registered", id)
		}
		parsed, err := dispatch.ParseTemplate(t.ID, t.Body)
		if err != nil {
			return out, err
		}
		*dst = parsed
	}
	return out, nil
}

var newSNSClient = func(ctx context.Context, region string) (awsclient.SNSService, error) {
	return awsclient.NewSNSClient(ctx, region)
}

// buildChannel returns the SNS channel, or the unconfigured channel that puts the dispatcher in simulation mode.
// SNS enabled without resolvable credentials also simulates.
func buildChannel(ctx context.Context, cfg *config.Config, log logger.Logger) (dispatch.Channel, error) {
	snsCfg := cfg.Integrations.AWS.SNS
	if !snsCfg.Enabled {
		log.Warn("SNS disabled, alerts will be simulated", nil)
		return dispatch.NewUnconfiguredChannel(), nil
	}

	client, err := newSNSClient(ctx, cfg.Integrations.AWS.Region)
	if errors.Is(err, awsclient.ErrNoCredentials) {
		log.Error("SNS enabled but no AWS credentials resolved, alerts will be simulated", map[string]interface{}{
			"region": cfg.Integrations.AWS.Region,
			"error":  err,
		})
		return dispatch.NewUnconfiguredChannel(), nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("SNS channel configured", map[string]interface{}{"region": cfg.Integrations.AWS.Region})
	return dispatch.NewSNSChannel(client, snsCfg.SenderID, snsCfg.SMSType), nil
}
