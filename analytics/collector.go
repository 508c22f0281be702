package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

var _ FlowDataCollector = new(LogFileDataCollector)

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordActionSuccess(flowId string, conversationId string, executor string, actionId string, output any) {
	lc.logger.Info("action_success",
		zap.String("flow", flowId),
		zap.String("conversation", conversationId),
		zap.String("executor", executor),
		zap.String("action", actionId),
		zap.Any("output", output))
}

func (lc *LogFileDataCollector) RecordActionFailure(flowId string, conversationId string, executor string, actionId string, reason string) {
	lc.logger.Info("action_failure",
		zap.String("flow", flowId),
		zap.String("conversation", conversationId),
		zap.String("executor", executor),
		zap.String("action", actionId),
		zap.String("reason", reason))
}

func (lc *LogFileDataCollector) RecordTurn(flowId string, conversationId string, stateId string, state string) {
	lc.logger.Info("turn",
		zap.String("flow", flowId),
		zap.String("conversation", conversationId),
		zap.String("state", stateId),
		zap.String("flowState", state))
}
