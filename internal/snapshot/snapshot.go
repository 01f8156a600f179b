package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/manu3618/reflecto/internal/storage"
	"github.com/manu3618/reflecto/internal/types"
	log "github.com/sirupsen/logrus"
)

// Manager holds the latest generation result behind an atomic value so
// API reads never block a running generation cycle.
type Manager struct {
	current   atomic.Value // stores *types.Result
	storage   storage.Storage
	persistMu sync.Mutex

	persistInterval time.Duration
	stopPersist     chan struct{}
}

func NewManager(store storage.Storage, persistIntervalSeconds int) *Manager {
	m := &Manager{
		storage:         store,
		persistInterval: time.Duration(persistIntervalSeconds) * time.Second,
		stopPersist:     make(chan struct{}),
	}

	// Initialize with empty result
	m.current.Store(&types.Result{Updated: time.Now()})

	// Start periodic persistence
	if persistIntervalSeconds > 0 {
		go m.periodicPersist()
	}

	return m
}

// Update atomically swaps the current result
func (m *Manager) Update(result *types.Result) {
	result.Updated = time.Now()
	m.current.Store(result)
	log.Infof("Result updated: %d mirrors retained", len(result.Mirrors))

	// Trigger async persistence
	go m.persist(result)
}

// Get returns the current result (atomic read)
func (m *Manager) Get() *types.Result {
	return m.current.Load().(*types.Result)
}

// persist saves the result to storage (non-blocking)
func (m *Manager) persist(result *types.Result) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if err := m.storage.Save(result); err != nil {
		log.Errorf("Failed to persist result: %v", err)
	} else {
		log.Debugf("Result persisted: %d mirrors", len(result.Mirrors))
	}
}

// periodicPersist saves the result at regular intervals
func (m *Manager) periodicPersist() {
	ticker := time.NewTicker(m.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.persist(m.Get())
		case <-m.stopPersist:
			return
		}
	}
}

// LoadFromStorage restores the last saved result so the API can serve a
// mirrorlist before the first generation cycle finishes.
func (m *Manager) LoadFromStorage() error {
	result, err := m.storage.Load()
	if err != nil {
		return err
	}

	if result != nil && len(result.Mirrors) > 0 {
		m.current.Store(result)
		log.Infof("Loaded %d mirrors from storage (generated %s)",
			len(result.Mirrors), result.Stats.GeneratedAt.Format(time.RFC3339))
		return nil
	}

	log.Info("No previous result in storage")
	return nil
}

// Close stops background tasks
func (m *Manager) Close() {
	close(m.stopPersist)

	// Final persist
	m.persist(m.Get())
}
