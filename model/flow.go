package model

type StateType string

const STATE_TYPE_ACTION StateType = "action"
const STATE_TYPE_DECISION StateType = "decision"
const STATE_TYPE_WAIT StateType = "wait"
const STATE_TYPE_END StateType = "end"

type ErrorPolicy string

const ON_ERROR_RETRY ErrorPolicy = "retry"
const ON_ERROR_CONTINUE ErrorPolicy = "continue"
const ON_ERROR_FAIL ErrorPolicy = "fail"

// event keys resolved against a state's transition map
const EVENT_DEFAULT = "default"
const EVENT_SUCCESS = "success"
const EVENT_ERROR = "error"
const EVENT_USER_MESSAGE = "user_message"
const EVENT_TIMEOUT = "timeout"

// FlowDefinition is immutable after load. All state edges are id lookups into
// States, never pointers.
type FlowDefinition struct {
	Id           string                     `json:"id" yaml:"id"`
	Name         string                     `json:"name" yaml:"name"`
	Version      string                     `json:"version" yaml:"version"`
	Trigger      string                     `json:"trigger" yaml:"trigger"`
	Module       string                     `json:"module" yaml:"module"`
	Enabled      bool                       `json:"enabled" yaml:"enabled"`
	Priority     int                        `json:"priority" yaml:"priority"`
	InitialState string                     `json:"initialState" yaml:"initialState"`
	FinalStates  []string                   `json:"finalStates" yaml:"finalStates"`
	States       map[string]StateDefinition `json:"states" yaml:"states"`
	Metadata     FlowMetadata               `json:"metadata" yaml:"metadata"`
}

type FlowMetadata struct {
	Author string   `json:"author" yaml:"author"`
	Tags   []string `json:"tags" yaml:"tags"`
}

type StateDefinition struct {
	Type        StateType          `json:"type" yaml:"type"`
	Description string             `json:"description" yaml:"description"`
	OnEntry     []ActionInvocation `json:"onEntry" yaml:"onEntry"`
	Actions     []ActionInvocation `json:"actions" yaml:"actions"`
	Conditions  []Condition        `json:"conditions" yaml:"conditions"`
	Transitions map[string]string  `json:"transitions" yaml:"transitions"`
	TimeoutMs   int64              `json:"timeoutMs" yaml:"timeoutMs"`
	Validator   *InputValidator    `json:"validator" yaml:"validator"`
	Completion  *CompletionSpec    `json:"completion" yaml:"completion"`
}

type ActionInvocation struct {
	Id         string         `json:"id" yaml:"id"`
	Executor   string         `json:"executor" yaml:"executor"`
	Config     map[string]any `json:"config" yaml:"config"`
	Output     string         `json:"output" yaml:"output"`
	OnError    ErrorPolicy    `json:"onError" yaml:"onError"`
	RetryCount int            `json:"retryCount" yaml:"retryCount"`
}

// Condition is one branch of a decision state. Evaluation is strictly
// first-match-wins; a literal "true" makes the entry an unconditional fallback.
type Condition struct {
	If    string `json:"if" yaml:"if"`
	Event string `json:"event" yaml:"event"`
}

type InputValidator struct {
	ValidKeywords []string `json:"validKeywords" yaml:"validKeywords"`
	ErrorMessage  string   `json:"errorMessage" yaml:"errorMessage"`
}

type CompletionSpec struct {
	CompletionType      string `json:"completionType" yaml:"completionType"`
	NextFlowSelection   string `json:"nextFlowSelection" yaml:"nextFlowSelection"`
	ResumePendingAction bool   `json:"resumePendingAction" yaml:"resumePendingAction"`
}

func (f *FlowDefinition) State(id string) (StateDefinition, bool) {
	s, ok := f.States[id]
	return s, ok
}

func (f *FlowDefinition) IsFinal(stateId string) bool {
	for _, id := range f.FinalStates {
		if id == stateId {
			return true
		}
	}
	return false
}
