package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"

type DataCollector interface {
	RecordNavigation(objectId string, locationId string, nextCount int, deferred bool, failed bool)
	RecordInterception(eventId string, eventType string, decision string, botCount int)
}

var collector DataCollector

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		collector = c
	}
	return nil
}

func RecordNavigation(objectId string, locationId string, nextCount int, deferred bool, failed bool) {
	if collector == nil {
		return
	}
	collector.RecordNavigation(objectId, locationId, nextCount, deferred, failed)
}

func RecordInterception(eventId string, eventType string, decision string, botCount int) {
	if collector == nil {
		return
	}
	collector.RecordInterception(eventId, eventType, decision, botCount)
}
