// health.go - Readiness checks for the vault service's dependencies
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// ComponentHealth is the result of one component check.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// Report is the overall result of a Check.
type Report struct {
	Status     Status            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
	Uptime     time.Duration     `json:"uptime"`
	Version    string            `json:"version"`
}

// CheckFunc returns nil when the component is usable.
type CheckFunc func(ctx context.Context) error

type component struct {
	check    CheckFunc
	optional bool
}

// Checker runs registered component checks.
type Checker struct {
	mu         sync.Mutex
	components map[string]component
	startTime  time.Time
	version    string
}

func NewChecker(version string) *Checker {
	return &Checker{
		components: make(map[string]component),
		startTime:  time.Now(),
		version:    version,
	}
}

// Register adds a required component. A failing required component makes the
// report unhealthy.
func (c *Checker) Register(name string, check CheckFunc) {
	c.add(name, component{check: check})
}

// RegisterOptional adds a component whose failure only degrades the report.
func (c *Checker) RegisterOptional(name string, check CheckFunc) {
	c.add(name, component{check: check, optional: true})
}

func (c *Checker) add(name string, comp component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = comp
}

// Check runs every registered check in name order.
func (c *Checker) Check(ctx context.Context) *Report {
	c.mu.Lock()
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	comps := make(map[string]component, len(c.components))
	for name, comp := range c.components {
		comps[name] = comp
	}
	c.mu.Unlock()
	sort.Strings(names)

	report := &Report{
		Status:     Healthy,
		Components: make([]ComponentHealth, 0, len(names)),
		Version:    c.version,
	}
	for _, name := range names {
		comp := comps[name]
		start := time.Now()
		err := comp.check(ctx)

		h := ComponentHealth{
			Name:      name,
			Status:    Healthy,
			Message:   "OK",
			LastCheck: time.Now(),
			Latency:   time.Since(start),
		}
		if err != nil {
			h.Message = err.Error()
			h.Status = Unhealthy
			if comp.optional {
				h.Status = Degraded
			}
		}

		if h.Status == Unhealthy {
			report.Status = Unhealthy
		} else if h.Status == Degraded && report.Status == Healthy {
			report.Status = Degraded
		}
		report.Components = append(report.Components, h)
	}
	report.Timestamp = time.Now()
	report.Uptime = time.Since(c.startTime)
	return report
}
