package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const taskKeyPrefix = "task:"

func taskKey(kind model.SourceKind, id int) []byte {
	return []byte(fmt.Sprintf("%s%s:%d", taskKeyPrefix, kind, id))
}

// MetadataDB keeps the last known status of every inference task across restarts.
type MetadataDB struct {
	db     *badger.DB
	logger *logrus.Entry
}

func NewMetadataDB(dir string, logger *logrus.Entry) (*MetadataDB, error) {
	return open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR), logger)
}

// NewInMemoryMetadataDB is a metadata db that is lost on Close.
func NewInMemoryMetadataDB(logger *logrus.Entry) (*MetadataDB, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR), logger)
}

func open(opts badger.Options, logger *logrus.Entry) (*MetadataDB, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &MetadataDB{
		db:     db,
		logger: logger,
	}, nil
}

func (m *MetadataDB) Close() error {
	return m.db.Close()
}

func (m *MetadataDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (m *MetadataDB) Set(key, val []byte) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (m *MetadataDB) Delete(key []byte) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (m *MetadataDB) GetTaskStatus(kind model.SourceKind, id int) (*dao.TaskStatus, error) {
	val, err := m.Get(taskKey(kind, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	status := &dao.TaskStatus{}
	if err := json.Unmarshal(val, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (m *MetadataDB) SetTaskStatus(status *dao.TaskStatus) error {
	val, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return m.Set(taskKey(status.SourceKind, status.SourceId), val)
}

func (m *MetadataDB) DeleteTaskStatus(kind model.SourceKind, id int) error {
	return m.Delete(taskKey(kind, id))
}

func (m *MetadataDB) ListTaskStatuses() ([]*dao.TaskStatus, error) {
	prefix := []byte(taskKeyPrefix)
	statuses := make([]*dao.TaskStatus, 0, 10)
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			status := &dao.TaskStatus{}
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, status)
			})
			if err != nil {
				m.logger.WithError(err).Errorf("unmarshal task status %s", item.Key())
			} else {
				statuses = append(statuses, status)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// MarkInterrupted marks tasks left running by a previous process as stopped.
func (m *MetadataDB) MarkInterrupted(now time.Time) (int, error) {
	statuses, err := m.ListTaskStatuses()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, status := range statuses {
		if status.State != dao.TaskStateRunning {
			continue
		}
		status.State = dao.TaskStateStopped
		status.FinishedAt = &now
		status.Error = "interrupted by restart"
		if err := m.SetTaskStatus(status); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
