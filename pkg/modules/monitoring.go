package modules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
)

// Monitoring provisions the alerting topic, the platform log groups,
// the operations dashboard, and the baseline alarms.
type Monitoring struct {
	provisioner provision.Provisioner
	logger      zerolog.Logger
}

// NewMonitoring creates the monitoring module.
func NewMonitoring(p provision.Provisioner, logger zerolog.Logger) *Monitoring {
	return &Monitoring{
		provisioner: p,
		logger:      logger.With().Str("module", "monitoring").Logger(),
	}
}

func (m *Monitoring) Name() string { return "monitoring" }

func (m *Monitoring) DependsOn() []string { return []string{"networking"} }

func (m *Monitoring) Synthesize(ctx context.Context, cfg *config.EnvironmentConfig, inputs engine.Inputs, reg *engine.OutputRegistry) ([]engine.Resource, error) {
	if _, ok := inputs["networking"]["vpc/id"]; !ok {
		return nil, engine.NewSynthError(engine.ErrCodeMissingOutput, "networking did not publish vpc/id", nil).WithModule(m.Name())
	}

	prefix := cfg.ResourcePrefix()
	var resources []engine.Resource

	// Two notification tiers. The alarm email, when configured, only
	// subscribes to critical alerts.
	criticalName := prefix + "-critical-alerts"
	criticalARN, err := m.provisioner.CreateTopic(ctx, criticalName)
	if err != nil {
		return nil, err
	}
	resources = append(resources, engine.Resource{ID: criticalARN, Type: "sns-topic", Name: criticalName})
	if err := reg.Write(ctx, m.Name(), "alarms/critical-topic-arn", criticalARN); err != nil {
		return nil, err
	}

	warningName := prefix + "-warning-alerts"
	warningARN, err := m.provisioner.CreateTopic(ctx, warningName)
	if err != nil {
		return nil, err
	}
	resources = append(resources, engine.Resource{ID: warningARN, Type: "sns-topic", Name: warningName})
	if err := reg.Write(ctx, m.Name(), "alarms/warning-topic-arn", warningARN); err != nil {
		return nil, err
	}

	if email := cfg.Monitoring.AlarmNotificationEmail; email != "" {
		if err := m.provisioner.SubscribeEmail(ctx, criticalARN, email); err != nil {
			return nil, err
		}
	}

	for _, tier := range []string{"application", "lambda", "api-gateway"} {
		group := cfg.LogGroupPrefix() + "/" + tier
		name, err := m.provisioner.CreateLogGroup(ctx, group, cfg.Monitoring.LogRetentionDays)
		if err != nil {
			return nil, err
		}
		resources = append(resources, engine.Resource{ID: name, Type: "log-group", Name: name})
		if err := reg.Write(ctx, m.Name(), "logs/"+tier, name); err != nil {
			return nil, err
		}
	}

	dashboard := prefix + "-dashboard"
	if err := m.provisioner.PutDashboard(ctx, dashboard, dashboardBody(cfg)); err != nil {
		return nil, err
	}
	if err := reg.Write(ctx, m.Name(), "monitoring/dashboard-name", dashboard); err != nil {
		return nil, err
	}

	if cfg.Monitoring.EnableDetailedMonitoring {
		alarms := []provision.Alarm{
			{
				Name:               prefix + "-lambda-error-rate",
				Description:        "Lambda error count above threshold",
				Namespace:          "AWS/Lambda",
				MetricName:         "Errors",
				Statistic:          "Sum",
				Threshold:          10,
				ComparisonOperator: "GreaterThanThreshold",
				EvaluationPeriods:  2,
				PeriodSeconds:      300,
				TopicARN:           criticalARN,
			},
			{
				Name:               prefix + "-lambda-duration",
				Description:        "Lambda average duration above 30s",
				Namespace:          "AWS/Lambda",
				MetricName:         "Duration",
				Statistic:          "Average",
				Threshold:          30000,
				ComparisonOperator: "GreaterThanThreshold",
				EvaluationPeriods:  3,
				PeriodSeconds:      300,
				TopicARN:           warningARN,
			},
			{
				Name:               prefix + "-api-5xx-errors",
				Description:        "API gateway server errors above threshold",
				Namespace:          "AWS/ApiGateway",
				MetricName:         "5XXError",
				Statistic:          "Sum",
				Threshold:          10,
				ComparisonOperator: "GreaterThanThreshold",
				EvaluationPeriods:  2,
				PeriodSeconds:      300,
				TopicARN:           criticalARN,
			},
		}
		for _, alarm := range alarms {
			if err := m.provisioner.PutMetricAlarm(ctx, alarm); err != nil {
				return nil, err
			}
		}
	}

	m.logger.Info().Str("critical_topic", criticalARN).Msg("Monitoring synthesized")
	return resources, nil
}

// dashboardBody renders the minimal operations dashboard definition.
func dashboardBody(cfg *config.EnvironmentConfig) string {
	return fmt.Sprintf(`{
  "widgets": [
    {
      "type": "metric",
      "properties": {
        "title": "Lambda invocations (%[1]s)",
        "region": "%[2]s",
        "metrics": [["AWS/Lambda", "Invocations"]],
        "stat": "Sum",
        "period": 300
      }
    },
    {
      "type": "metric",
      "properties": {
        "title": "API latency (%[1]s)",
        "region": "%[2]s",
        "metrics": [["AWS/ApiGateway", "Latency"]],
        "stat": "p99",
        "period": 300
      }
    }
  ]
}`, cfg.Environment, cfg.Region)
}
