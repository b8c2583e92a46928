package domain

// StepState tracks one fallible action until its outcome is known.
type StepState string

const (
	StepPending   StepState = "pending"
	StepConfirmed StepState = "confirmed"
	StepFailed    StepState = "failed"
)

type CommitStep string

const (
	StepCreateOrder     CommitStep = "create_order"
	StepClearServerCart CommitStep = "clear_server_cart"
	StepClearLocalCart  CommitStep = "clear_local_cart"
	StepSendMail        CommitStep = "send_mail"
	StepPublishEvent    CommitStep = "publish_event"
)

// StepResult is keyed by (payment intent id, step) in the checkout ledger.
type StepResult struct {
	Step  CommitStep `json:"step"`
	State StepState  `json:"state"`
	Error string     `json:"error,omitempty"`
}

// StepLog is an ordered record of step results.
type StepLog []StepResult

// Set records the latest state of a step, replacing an earlier entry.
func (l *StepLog) Set(step CommitStep, state StepState, err error) {
	res := StepResult{Step: step, State: state}
	if err != nil {
		res.Error = err.Error()
	}
	for i := range *l {
		if (*l)[i].Step == step {
			(*l)[i] = res
			return
		}
	}
	*l = append(*l, res)
}

// State returns the recorded state, or pending when the step never ran.
func (l StepLog) State(step CommitStep) StepState {
	for _, r := range l {
		if r.Step == step {
			return r.State
		}
	}
	return StepPending
}
