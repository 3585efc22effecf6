package dispatch

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultWorkerCount   = 5
	rolloverInterval     = 1 * time.Hour
	expiryInterval       = 10 * time.Minute
	pendingPaymentMaxAge = 24 * time.Hour
)

// Manager manages the global side-effect queue and background tasks
type Manager struct {
	queue          *Queue
	rolloverTicker *time.Ticker
	expiryTicker   *time.Ticker
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// rollover resets lapsed usage cycles; expire fails stale pending
	// payments. Both are injected so this package stays storage-agnostic.
	rollover func(now time.Time) int
	expire   func(now time.Time, maxAge time.Duration) int
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global dispatch manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(defaultWorkerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Configure wires the periodic maintenance hooks. Must be called before Start.
func (m *Manager) Configure(rollover func(now time.Time) int, expire func(now time.Time, maxAge time.Duration) int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover = rollover
	m.expire = expire
}

// Start starts the queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Dispatch Manager] Starting queue and background tasks")

	m.queue.Start()

	if m.rollover != nil {
		m.rolloverTicker = time.NewTicker(rolloverInterval)
		m.wg.Add(1)
		go m.rolloverWorker()
	}

	if m.expire != nil {
		m.expiryTicker = time.NewTicker(expiryInterval)
		m.wg.Add(1)
		go m.expiryWorker()
	}

	log.Info("[Dispatch Manager] Started successfully")
}

// Stop stops the queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Dispatch Manager] Stopping queue and background tasks...")

	if m.rolloverTicker != nil {
		m.rolloverTicker.Stop()
	}
	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[Dispatch Manager] Stopped successfully")
}

// rolloverWorker runs periodically to reset lapsed billing cycle counters
func (m *Manager) rolloverWorker() {
	defer m.wg.Done()
	log.Infof("[Dispatch Manager] Started cycle rollover worker (interval: %s)", rolloverInterval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Dispatch Manager] Rollover worker stopping")
			return
		case <-m.rolloverTicker.C:
			m.rollover(time.Now())
		}
	}
}

// expiryWorker runs periodically to fail stale pending payments
func (m *Manager) expiryWorker() {
	defer m.wg.Done()
	log.Infof("[Dispatch Manager] Started payment expiry worker (interval: %s)", expiryInterval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Dispatch Manager] Expiry worker stopping")
			return
		case <-m.expiryTicker.C:
			m.expire(time.Now(), pendingPaymentMaxAge)
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
