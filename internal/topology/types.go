package topology

// Flow is the lifecycle direction a batch drives.
type Flow string

const (
	// FlowCreated creates or updates artifacts present in the repository.
	FlowCreated Flow = "CREATED"

	// FlowRemoved removes persisted artifacts whose declaration disappeared.
	FlowRemoved Flow = "REMOVED"
)

// Outcome is the result of processing one wrapper.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)
