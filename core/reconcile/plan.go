package reconcile

// Plan is the result of one reconciliation pass.
type Plan struct {
	// Operations are in remote order. Skips are present only with IncludeSkips.
	Operations []SyncOperation `json:"operations"`

	Summary Summary `json:"summary"`
}

func (s *Summary) add(kind Kind) {
	s.Total++
	switch kind {
	case KindCreate:
		s.Creates++
	case KindUpdate:
		s.Updates++
	case KindConflict:
		s.Conflicts++
	case KindSkip:
		s.Skipped++
	}
}

// Actionable returns the operations the coordinator will write.
func (p *Plan) Actionable() []SyncOperation {
	var out []SyncOperation
	for _, op := range p.Operations {
		if op.Kind == KindCreate || op.Kind == KindUpdate {
			out = append(out, op)
		}
	}
	return out
}

// Conflicts returns the operations that need human resolution.
func (p *Plan) Conflicts() []SyncOperation {
	var out []SyncOperation
	for _, op := range p.Operations {
		if op.Kind == KindConflict {
			out = append(out, op)
		}
	}
	return out
}

// Settled reports whether the pass found nothing to write and nothing to resolve.
func (p *Plan) Settled() bool {
	return p.Summary.Creates == 0 && p.Summary.Updates == 0 && p.Summary.Conflicts == 0
}
