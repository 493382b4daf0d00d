package crm

import "context"

// Analytics is a read-only aggregate over the lead pipeline.
type Analytics struct {
	TotalLeads     int            `json:"total_leads"`
	ByStatus       map[string]int `json:"by_status"`
	ByPriority     map[string]int `json:"by_priority"`
	PipelineValue  float64        `json:"pipeline_value"`
	WonValue       float64        `json:"won_value"`
	ConversionRate float64        `json:"conversion_rate"`
	AssignedCounts map[string]int `json:"assigned_counts"`
}

// GetAnalytics computes pipeline aggregates. Read-only; no event is emitted.
func (svc *Service) GetAnalytics(ctx context.Context) (*Analytics, error) {
	leads, err := svc.store.ListLeads(ctx, LeadFilter{})
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		TotalLeads:     len(leads),
		ByStatus:       make(map[string]int),
		ByPriority:     make(map[string]int),
		AssignedCounts: make(map[string]int),
	}

	var won, closed int
	for _, l := range leads {
		a.ByStatus[l.Status]++
		a.ByPriority[l.Priority]++
		if l.Assigned() {
			a.AssignedCounts[l.AssignedTo.String()]++
		}

		switch l.Status {
		case StatusWon:
			won++
			closed++
			a.WonValue += l.DealValue
		case StatusLost:
			closed++
		default:
			a.PipelineValue += l.DealValue
		}
	}

	if closed > 0 {
		a.ConversionRate = float64(won) / float64(closed)
	}

	return a, nil
}
