package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP"

// FlowDataCollector receives one record per executed action and per finished
// turn, for operator-side analysis of flow behavior.
type FlowDataCollector interface {
	RecordActionSuccess(flowId string, conversationId string, executor string, actionId string, output any)
	RecordActionFailure(flowId string, conversationId string, executor string, actionId string, reason string)
	RecordTurn(flowId string, conversationId string, stateId string, state string)
}

var flowCollector FlowDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		flowCollector = c
	}
	return nil
}

func RecordActionSuccess(flowId string, conversationId string, executor string, actionId string, output any) {
	flowCollector.RecordActionSuccess(flowId, conversationId, executor, actionId, output)
}

func RecordActionFailure(flowId string, conversationId string, executor string, actionId string, reason string) {
	flowCollector.RecordActionFailure(flowId, conversationId, executor, actionId, reason)
}

func RecordTurn(flowId string, conversationId string, stateId string, state string) {
	flowCollector.RecordTurn(flowId, conversationId, stateId, state)
}

type noopCollector struct{}

func (noopCollector) RecordActionSuccess(string, string, string, string, any) {}
func (noopCollector) RecordActionFailure(string, string, string, string, string) {}
func (noopCollector) RecordTurn(string, string, string, string)                {}
