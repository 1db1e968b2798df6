package provision

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/optstrat/infra/pkg/engine"
)

// SubnetRecord captures one subnet creation.
type SubnetRecord struct {
	Name   string
	VPCID  string
	CIDR   string
	Zone   string
	Public bool
}

// SecurityGroupRecord captures one security group creation.
type SecurityGroupRecord struct {
	Name        string
	Description string
	VPCID       string
}

// Memory is an in-process Provisioner for dry runs and tests. It
// assigns deterministic identifiers in creation order, so two
// identical runs against fresh instances produce identical IDs.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int

	VPCs           map[string]string              // id -> cidr
	Subnets        map[string]SubnetRecord        // id -> record
	LogGroups      map[string]int                 // name -> retention days
	SecurityGroups map[string]SecurityGroupRecord // id -> record
	Ingress        map[string][]IngressRule       // sg id -> rules
	Roles          map[string]string              // name -> service principal
	RolePolicies   map[string][]string            // role name -> policy arns
	Topics         map[string]string              // arn -> name
	Subscriptions  map[string][]string            // topic arn -> emails
	Dashboards     map[string]string              // name -> body
	Alarms         map[string]Alarm               // name -> alarm
	Tags           map[string]map[string]string   // resource id -> tags
}

// NewMemory creates an empty in-memory provisioner.
func NewMemory() *Memory {
	return &Memory{
		counters:       make(map[string]int),
		VPCs:           make(map[string]string),
		Subnets:        make(map[string]SubnetRecord),
		LogGroups:      make(map[string]int),
		SecurityGroups: make(map[string]SecurityGroupRecord),
		Ingress:        make(map[string][]IngressRule),
		Roles:          make(map[string]string),
		RolePolicies:   make(map[string][]string),
		Topics:         make(map[string]string),
		Subscriptions:  make(map[string][]string),
		Dashboards:     make(map[string]string),
		Alarms:         make(map[string]Alarm),
		Tags:           make(map[string]map[string]string),
	}
}

// nextID returns the next deterministic identifier for a resource kind.
func (m *Memory) nextID(kind string) string {
	m.counters[kind]++
	return fmt.Sprintf("%s-%04d", kind, m.counters[kind])
}

func (m *Memory) CreateVPC(_ context.Context, _, cidr string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("vpc")
	m.VPCs[id] = cidr
	return id, nil
}

func (m *Memory) CreateSubnet(_ context.Context, name, vpcID, cidr, zone string, public bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.VPCs[vpcID]; !ok {
		return "", fmt.Errorf("unknown vpc %s", vpcID)
	}
	id := m.nextID("subnet")
	m.Subnets[id] = SubnetRecord{Name: name, VPCID: vpcID, CIDR: cidr, Zone: zone, Public: public}
	return id, nil
}

func (m *Memory) CreateLogGroup(_ context.Context, name string, retentionDays int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogGroups[name] = retentionDays
	return name, nil
}

func (m *Memory) CreateSecurityGroup(_ context.Context, name, description, vpcID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.VPCs[vpcID]; !ok {
		return "", fmt.Errorf("unknown vpc %s", vpcID)
	}
	id := m.nextID("sg")
	m.SecurityGroups[id] = SecurityGroupRecord{Name: name, Description: description, VPCID: vpcID}
	return id, nil
}

func (m *Memory) AuthorizeIngress(_ context.Context, securityGroupID string, rule IngressRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.SecurityGroups[securityGroupID]; !ok {
		return fmt.Errorf("unknown security group %s", securityGroupID)
	}
	m.Ingress[securityGroupID] = append(m.Ingress[securityGroupID], rule)
	return nil
}

func (m *Memory) CreateRole(_ context.Context, name, service string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Roles[name]; exists {
		return "", fmt.Errorf("role %s already exists", name)
	}
	m.Roles[name] = service
	return fmt.Sprintf("arn:aws:iam::000000000000:role/%s", name), nil
}

func (m *Memory) AttachRolePolicies(_ context.Context, roleName string, policyARNs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Roles[roleName]; !ok {
		return fmt.Errorf("unknown role %s", roleName)
	}
	m.RolePolicies[roleName] = append(m.RolePolicies[roleName], policyARNs...)
	return nil
}

func (m *Memory) CreateTopic(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	arn := fmt.Sprintf("arn:aws:sns:ap-south-1:000000000000:%s", name)
	m.Topics[arn] = name
	return arn, nil
}

func (m *Memory) SubscribeEmail(_ context.Context, topicARN, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Topics[topicARN]; !ok {
		return fmt.Errorf("unknown topic %s", topicARN)
	}
	m.Subscriptions[topicARN] = append(m.Subscriptions[topicARN], email)
	return nil
}

func (m *Memory) PutDashboard(_ context.Context, name, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dashboards[name] = body
	return nil
}

func (m *Memory) PutMetricAlarm(_ context.Context, alarm Alarm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alarms[alarm.Name] = alarm
	return nil
}

func (m *Memory) TagResources(_ context.Context, resources []engine.Resource, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range resources {
		existing, ok := m.Tags[r.ID]
		if !ok {
			existing = make(map[string]string, len(tags))
			m.Tags[r.ID] = existing
		}
		for k, v := range tags {
			existing[k] = v
		}
	}
	return nil
}

// TaggedIDs returns the IDs of every tagged resource in sorted order.
func (m *Memory) TaggedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.Tags))
	for id := range m.Tags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemorySink is an in-process ParameterSink for dry runs and tests.
// Plain and secure writes land in separate maps so tests can assert
// which hierarchy a parameter was materialized into.
type MemorySink struct {
	mu           sync.Mutex
	Params       map[string]string
	SecureParams map[string]string
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Params:       make(map[string]string),
		SecureParams: make(map[string]string),
	}
}

// Put stores the value at the given path.
func (s *MemorySink) Put(_ context.Context, path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Params[path] = value
	return nil
}

// PutSecure stores the value at the given path as an encrypted
// parameter.
func (s *MemorySink) PutSecure(_ context.Context, path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SecureParams[path] = value
	return nil
}
