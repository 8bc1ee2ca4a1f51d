// Package domain holds the types shared by every layer of the dashboard:
// pipelines as reported upstream, the proxy envelope, and toggle events.
package domain

import "fmt"

// Pipeline is one tenant-scoped pipeline as reported by the upstream API.
// Records are read-only projections; nothing in the dashboard mutates them.
type Pipeline struct {
	TenantID     string `json:"tenantId"`
	PipelineID   string `json:"pipelineId"`
	PipelineName string `json:"pipelineName"`
	Name         string `json:"name"`
	IsActive     bool   `json:"isActive"`
}

// Key returns the row identity of the pipeline. (TenantID, PipelineID) is
// unique within a single listing.
func (p Pipeline) Key() string {
	return p.TenantID + "-" + p.PipelineID
}

// DisplayName returns PipelineName, falling back to Name.
func (p Pipeline) DisplayName() string {
	if p.PipelineName != "" {
		return p.PipelineName
	}
	return p.Name
}

// Find returns the pipeline identified by tenantID and pipelineID. Both
// fields are compared, since row keys are ambiguous when ids contain '-'.
func Find(pipelines []Pipeline, tenantID, pipelineID string) (Pipeline, bool) {
	for _, p := range pipelines {
		if p.TenantID == tenantID && p.PipelineID == pipelineID {
			return p, true
		}
	}
	return Pipeline{}, false
}

// Summary counts active pipelines in a listing.
type Summary struct {
	Active int
	Total  int
}

// Summarize computes a Summary from scratch; callers must not cache it
// across listings.
func Summarize(pipelines []Pipeline) Summary {
	s := Summary{Total: len(pipelines)}
	for _, p := range pipelines {
		if p.IsActive {
			s.Active++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d active / %d total", s.Active, s.Total)
}
