package model

type SelectionOption struct {
	NodeId    string
	NodeLabel string
}

// DeferredDecisionData describes a branch choice that could not be resolved
// synchronously. The caller is expected to retry the same decision key with the
// same options once a decision has been made out of band.
type DeferredDecisionData struct {
	DecisionKey string
	Options     []SelectionOption
	ProcessId   string
}

// NavigationDecision is the universal return type of every navigator operation.
// A non-empty DeferredDecisions takes precedence over every other outcome:
// NextLocations must be empty and TriggerBranchFailure false.
type NavigationDecision struct {
	DeferredDecisions    []DeferredDecisionData
	IsNodeStillActive    bool
	NextLocations        []Location
	ClosedLocations      []Location
	TriggerBranchFailure bool
}

func EmptyDecision() *NavigationDecision {
	return &NavigationDecision{}
}

func DeferredDecision(deferred ...DeferredDecisionData) *NavigationDecision {
	return &NavigationDecision{
		DeferredDecisions: deferred,
	}
}
