package pathway

import "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"

// EnvironmentPolicy decides the post-secondary pathway from the requested
// value and whether the process serves the demo environment.
type EnvironmentPolicy interface {
	Pathway(requested analysis.Pathway, demo bool) analysis.Pathway
}

// DemoPolicy forces simple in the demo environment and otherwise honors the
// request, defaulting to complex.
type DemoPolicy struct{}

func (DemoPolicy) Pathway(requested analysis.Pathway, demo bool) analysis.Pathway {
	if demo {
		return analysis.PathwaySimple
	}
	if requested == analysis.PathwayUnset {
		return analysis.PathwayComplex
	}
	return requested
}

// Selector maps a request onto its effective pathway.
type Selector struct {
	Policy EnvironmentPolicy
	Demo   bool
}

func NewSelector(policy EnvironmentPolicy, demo bool) Selector {
	if policy == nil {
		policy = DemoPolicy{}
	}
	return Selector{Policy: policy, Demo: demo}
}

// Effective never fails; the result is always simple or complex.
func (s Selector) Effective(module analysis.ModuleType, requested analysis.Pathway) analysis.Pathway {
	switch module {
	case analysis.ModuleTutoring:
		return analysis.PathwaySimple
	case analysis.ModulePostSecondary:
		policy := s.Policy
		if policy == nil {
			policy = DemoPolicy{}
		}
		if policy.Pathway(requested, s.Demo) == analysis.PathwaySimple {
			return analysis.PathwaySimple
		}
		return analysis.PathwayComplex
	case analysis.ModuleK12:
		return orComplex(requested)
	}
	return orComplex(requested)
}

func orComplex(requested analysis.Pathway) analysis.Pathway {
	if requested == analysis.PathwaySimple {
		return analysis.PathwaySimple
	}
	return analysis.PathwayComplex
}
