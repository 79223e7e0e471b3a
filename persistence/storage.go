package persistence

import "fmt"

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

const DEFINITION_PREFIX string = "DEF_"
const BOT_PREFIX string = "BOT_"
const LOCK_PREFIX string = "LOCK_"
