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
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordNavigation(objectId string, locationId string, nextCount int, deferred bool, failed bool) {
	lc.logger.Info("navigation", zap.String("object", objectId), zap.String("location", locationId), zap.Int("next", nextCount), zap.Bool("deferred", deferred), zap.Bool("failed", failed))
}

func (lc *LogFileDataCollector) RecordInterception(eventId string, eventType string, decision string, botCount int) {
	lc.logger.Info("interception", zap.String("event", eventId), zap.String("type", eventType), zap.String("decision", decision), zap.Int("bots", botCount))
}
