package dummydb

import (
	"sync"

	"github.com/kazimoto/tarefa/core/activity"
	"github.com/kazimoto/tarefa/core/notification"
)

type (
	DB struct {
		activity     *activityTable
		fileRecord   *fileRecordTable
		notification *notificationTable
	}

	activityTable struct {
		sync.RWMutex
		table map[string]*activity.Activity
	}

	fileRecordTable struct {
		sync.RWMutex
		table map[string]*activity.FileRecord
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}
)

func Open() (*DB, error) {
	db := &DB{
		activity:     &activityTable{table: make(map[string]*activity.Activity)},
		fileRecord:   &fileRecordTable{table: make(map[string]*activity.FileRecord)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
	return db, nil
}
