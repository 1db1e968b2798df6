package modules

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/config"
	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
	"github.com/optstrat/infra/pkg/tagging"
)

func resolve(t *testing.T, env string) *config.EnvironmentConfig {
	t.Helper()
	cfg, err := config.Resolve(env)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", env, err)
	}
	return cfg
}

// synthesize runs the full module set against a fresh in-memory
// provisioner and returns the collaborators for inspection.
func synthesize(t *testing.T, cfg *config.EnvironmentConfig) (*provision.Memory, *provision.MemorySink, *engine.OutputRegistry) {
	t.Helper()

	mem := provision.NewMemory()
	sink := provision.NewMemorySink()

	graph, err := engine.NewModuleGraph(All(mem, zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewModuleGraph() error = %v", err)
	}
	s := engine.NewSynthesizer(graph, config.NewValidator(), tagging.NewPolicy(), mem, zerolog.Nop(), engine.WithSink(sink))

	reg, _, err := s.Synthesize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	return mem, sink, reg
}

func TestSynthesize_PublishesOutputContracts(t *testing.T) {
	_, _, reg := synthesize(t, resolve(t, "dev"))

	contracts := map[string][]string{
		"networking": {
			"vpc/id", "vpc/cidr",
			"subnets/public", "subnets/private", "subnets/isolated",
			"flow-logs/group",
		},
		"security": {
			"security-groups/alb", "security-groups/app",
			"security-groups/lambda", "security-groups/database",
		},
		"identity": {
			"iam/lambda-role-arn", "iam/ecs-execution-role-arn",
			"iam/ecs-task-role-arn", "iam/api-gateway-role-arn",
		},
		"configuration": {
			"config/parameter-count", "config/kms-enabled",
			"refs/vpc-id", "refs/lambda-role-arn",
			"secure/database/connection-string", "secure/api/trading-api-key",
			"secure/notifications/email-endpoint", "secure/encryption/data-key",
		},
		"monitoring": {
			"alarms/critical-topic-arn", "alarms/warning-topic-arn",
			"logs/application", "logs/lambda", "logs/api-gateway",
			"monitoring/dashboard-name",
		},
	}
	for module, names := range contracts {
		for _, name := range names {
			if _, err := reg.Read(module, name); err != nil {
				t.Errorf("missing output %s/%s: %v", module, name, err)
			}
		}
	}
}

func TestSynthesize_SubnetTiersPerZone(t *testing.T) {
	cfg := resolve(t, "prod")
	mem, _, reg := synthesize(t, cfg)

	for _, tier := range []string{"public", "private", "isolated"} {
		value, err := reg.Read("networking", "subnets/"+tier)
		if err != nil {
			t.Fatalf("Read(subnets/%s) error = %v", tier, err)
		}
		ids := strings.Split(value, ",")
		if len(ids) != cfg.Networking.MaxAZs {
			t.Errorf("%s subnets = %d, want %d", tier, len(ids), cfg.Networking.MaxAZs)
		}
	}

	if len(mem.Subnets) != 3*cfg.Networking.MaxAZs {
		t.Errorf("total subnets = %d, want %d", len(mem.Subnets), 3*cfg.Networking.MaxAZs)
	}

	// Tiers must not share address space.
	seen := make(map[string]string)
	for id, rec := range mem.Subnets {
		if other, dup := seen[rec.CIDR]; dup {
			t.Errorf("subnets %s and %s share CIDR %s", id, other, rec.CIDR)
		}
		seen[rec.CIDR] = id
	}
}

func TestSynthesize_DatabaseIngressIsTiered(t *testing.T) {
	mem, _, reg := synthesize(t, resolve(t, "dev"))

	dbID, err := reg.Read("security", "security-groups/database")
	if err != nil {
		t.Fatalf("Read(security-groups/database) error = %v", err)
	}
	appID, _ := reg.Read("security", "security-groups/app")
	lambdaID, _ := reg.Read("security", "security-groups/lambda")

	sources := make(map[string]bool)
	for _, rule := range mem.Ingress[dbID] {
		if rule.SourceCIDR != "" {
			t.Errorf("database accepts CIDR ingress: %+v", rule)
		}
		sources[rule.SourceSecurityGroupID] = true
	}
	if !sources[appID] || !sources[lambdaID] {
		t.Errorf("database ingress sources = %v, want app %s and lambda %s", sources, appID, lambdaID)
	}
}

func TestSynthesize_LambdaRolePolicies(t *testing.T) {
	cfg := resolve(t, "dev")
	mem, _, _ := synthesize(t, cfg)

	roleName := cfg.ResourcePrefix() + "-lambda-role"
	policies := mem.RolePolicies[roleName]

	wantBasic := "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
	found := false
	for _, p := range policies {
		if p == wantBasic {
			found = true
		}
	}
	if !found {
		t.Errorf("lambda role policies %v missing %s", policies, wantBasic)
	}

	// Dev enables X-Ray, so the write access policy must be attached.
	wantXRay := "arn:aws:iam::aws:policy/AWSXRayDaemonWriteAccess"
	found = false
	for _, p := range policies {
		if p == wantXRay {
			found = true
		}
	}
	if !found {
		t.Errorf("lambda role policies %v missing %s", policies, wantXRay)
	}
}

func TestSynthesize_ConfigurationPublishesFlagsAndRefs(t *testing.T) {
	cfg := resolve(t, "prod")
	_, sink, reg := synthesize(t, cfg)

	for flag, enabled := range cfg.FeatureFlags {
		value, err := reg.Read("configuration", "flags/"+flag)
		if err != nil {
			t.Errorf("missing flag output %s: %v", flag, err)
			continue
		}
		want := "false"
		if enabled {
			want = "true"
		}
		if value != want {
			t.Errorf("flags/%s = %q, want %q", flag, value, want)
		}
	}

	vpcID, _ := reg.Read("networking", "vpc/id")
	ref, err := reg.Read("configuration", "refs/vpc-id")
	if err != nil {
		t.Fatalf("Read(refs/vpc-id) error = %v", err)
	}
	if ref != vpcID {
		t.Errorf("refs/vpc-id = %q, want %q", ref, vpcID)
	}

	// Every configuration output is materialized under the environment's
	// parameter prefix.
	path := cfg.ParameterPrefix() + "/configuration/refs/vpc-id"
	if sink.Params[path] != vpcID {
		t.Errorf("sink[%s] = %q, want %q", path, sink.Params[path], vpcID)
	}
}

func TestSynthesize_SecureParametersEncrypted(t *testing.T) {
	t.Setenv("PROD_NOTIFICATION_EMAIL", "ops@example.com")

	cfg := resolve(t, "prod")
	_, sink, _ := synthesize(t, cfg)

	prefix := cfg.ParameterPrefix() + "/configuration/"

	// Every secure/* parameter is materialized encrypted; none may land
	// in the plain hierarchy.
	secure := []string{
		"secure/database/connection-string",
		"secure/database/read-replica-string",
		"secure/cache/redis-endpoint",
		"secure/api/trading-api-key",
		"secure/api/market-data-key",
		"secure/notifications/email-endpoint",
		"secure/encryption/data-key",
	}
	for _, name := range secure {
		path := prefix + name
		if _, ok := sink.SecureParams[path]; !ok {
			t.Errorf("secure parameter %s was not materialized encrypted", path)
		}
		if _, leaked := sink.Params[path]; leaked {
			t.Errorf("secure parameter %s leaked into the plain hierarchy", path)
		}
	}

	if got := sink.SecureParams[prefix+"secure/notifications/email-endpoint"]; got != "ops@example.com" {
		t.Errorf("notification endpoint = %q, want %q", got, "ops@example.com")
	}

	// Plain outputs stay in the plain hierarchy.
	if _, ok := sink.Params[prefix+"config/kms-enabled"]; !ok {
		t.Error("config/kms-enabled missing from the plain hierarchy")
	}
}

func TestSynthesize_MonitoringAlarmsFollowPreset(t *testing.T) {
	t.Setenv("PROD_NOTIFICATION_EMAIL", "ops@example.com")

	cfg := resolve(t, "prod")
	mem, _, reg := synthesize(t, cfg)

	criticalARN, err := reg.Read("monitoring", "alarms/critical-topic-arn")
	if err != nil {
		t.Fatalf("Read(alarms/critical-topic-arn) error = %v", err)
	}
	warningARN, err := reg.Read("monitoring", "alarms/warning-topic-arn")
	if err != nil {
		t.Fatalf("Read(alarms/warning-topic-arn) error = %v", err)
	}

	// The alarm email only subscribes to critical alerts.
	if emails := mem.Subscriptions[criticalARN]; len(emails) != 1 || emails[0] != "ops@example.com" {
		t.Errorf("critical topic subscriptions = %v, want [ops@example.com]", emails)
	}
	if emails := mem.Subscriptions[warningARN]; len(emails) != 0 {
		t.Errorf("warning topic subscriptions = %v, want none", emails)
	}

	// Prod enables detailed monitoring, so the baseline alarms exist and
	// notify one of the two topics.
	if len(mem.Alarms) != 3 {
		t.Fatalf("prod created %d alarms, want 3", len(mem.Alarms))
	}
	for name, alarm := range mem.Alarms {
		if alarm.TopicARN != criticalARN && alarm.TopicARN != warningARN {
			t.Errorf("alarm %s notifies %q, want critical or warning topic", name, alarm.TopicARN)
		}
	}
	if a, ok := mem.Alarms[cfg.ResourcePrefix()+"-lambda-duration"]; !ok {
		t.Error("lambda duration alarm missing")
	} else if a.TopicARN != warningARN {
		t.Errorf("lambda duration alarm notifies %q, want warning topic %q", a.TopicARN, warningARN)
	}
}

func TestSynthesize_DevSkipsDetailedAlarms(t *testing.T) {
	mem, _, _ := synthesize(t, resolve(t, "dev"))
	if len(mem.Alarms) != 0 {
		t.Errorf("dev created %d alarms, want 0", len(mem.Alarms))
	}
}

func TestSynthesize_TagsEveryTaggableResource(t *testing.T) {
	cfg := resolve(t, "prod")
	mem, _, reg := synthesize(t, cfg)

	vpcID, _ := reg.Read("networking", "vpc/id")
	tags, ok := mem.Tags[vpcID]
	if !ok {
		t.Fatalf("vpc %s was not tagged", vpcID)
	}
	if tags["DataResidency"] != "india" {
		t.Errorf("vpc tags[DataResidency] = %q, want %q", tags["DataResidency"], "india")
	}
	if tags["Criticality"] != tagging.CriticalityHigh {
		t.Errorf("vpc tags[Criticality] = %q, want %q", tags["Criticality"], tagging.CriticalityHigh)
	}
}

func TestSynthesize_DeterministicAcrossRuns(t *testing.T) {
	first := func() map[string]string {
		_, _, reg := synthesize(t, resolve(t, "staging"))
		return reg.Snapshot()
	}

	a := first()
	b := first()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("snapshots differ across identical runs:\n%v\n%v", a, b)
	}
}
