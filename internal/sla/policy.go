package sla

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nxdesk/sla-service/internal/domain"
)

const (
	// DefaultDuration is the fixed SLA window measured from ticket creation.
	DefaultDuration          = 2 * time.Hour
	DefaultWarningThreshold  = 30 * time.Minute
	DefaultCriticalThreshold = 10 * time.Minute
	DefaultTickInterval      = time.Second
)

// Policy holds the SLA constants and the extra status spellings accepted from the backend.
type Policy struct {
	Duration          time.Duration     `yaml:"duration"`
	WarningThreshold  time.Duration     `yaml:"warning_threshold"`
	CriticalThreshold time.Duration     `yaml:"critical_threshold"`
	TickInterval      time.Duration     `yaml:"tick_interval"`
	Aliases           map[string]string `yaml:"aliases"`
}

// DefaultPolicy returns the built-in 2h policy.
func DefaultPolicy() Policy {
	return Policy{
		Duration:          DefaultDuration,
		WarningThreshold:  DefaultWarningThreshold,
		CriticalThreshold: DefaultCriticalThreshold,
		TickInterval:      DefaultTickInterval,
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read sla policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes YAML policy content over the defaults and validates it.
func ParsePolicy(raw []byte) (Policy, error) {
	policy := DefaultPolicy()
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("decode sla policy: %w", err)
	}
	if err := policy.validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// withDefaults fills unset fields from DefaultPolicy. Thresholds are filled only
// when both are zero, since a zero critical threshold alone is valid.
func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.Duration == 0 {
		p.Duration = defaults.Duration
	}
	if p.TickInterval == 0 {
		p.TickInterval = defaults.TickInterval
	}
	if p.WarningThreshold == 0 && p.CriticalThreshold == 0 {
		p.WarningThreshold = defaults.WarningThreshold
		p.CriticalThreshold = defaults.CriticalThreshold
	}
	return p
}

func (p *Policy) validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("sla policy: duration must be positive")
	}
	if p.TickInterval <= 0 {
		return fmt.Errorf("sla policy: tick_interval must be positive")
	}
	if p.CriticalThreshold < 0 || p.WarningThreshold < p.CriticalThreshold {
		return fmt.Errorf("sla policy: thresholds must satisfy 0 <= critical <= warning")
	}
	aliases := make(map[string]string, len(p.Aliases))
	for from, to := range p.Aliases {
		status, ok := domain.ParseTicketStatus(to)
		if !ok {
			return fmt.Errorf("sla policy: alias %q targets unknown status %q", from, to)
		}
		aliases[strings.ToLower(strings.TrimSpace(from))] = string(status)
	}
	p.Aliases = aliases
	return nil
}

// Normalize resolves raw status text to a canonical status, consulting policy aliases first.
func (p Policy) Normalize(raw string) domain.TicketStatus {
	if to, ok := p.Aliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return domain.TicketStatus(to)
	}
	status, _ := domain.ParseTicketStatus(raw)
	return status
}

// Classify returns the SLA phase for raw status text.
func (p Policy) Classify(status domain.TicketStatus) domain.Phase {
	return domain.Classify(p.Normalize(string(status)))
}

func (p Policy) warningSeconds() int64  { return int64(p.WarningThreshold / time.Second) }
func (p Policy) criticalSeconds() int64 { return int64(p.CriticalThreshold / time.Second) }
