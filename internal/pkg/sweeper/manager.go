package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Manager runs sweeps on a ticker inside the service process. Deployments
// with an external scheduler call the cleanup endpoint instead.
type Manager struct {
	sweeper  *Sweeper
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       *sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewManager(sweeper *Sweeper, interval time.Duration) *Manager {
	return &Manager{sweeper: sweeper, interval: interval}
}

// Start is a no-op when the interval is not positive.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.interval <= 0 {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	m.ticker = time.NewTicker(m.interval)
	m.wg = &sync.WaitGroup{}
	m.wg.Add(1)
	go m.sweepWorker(m.wg, m.ticker, m.stopCh)

	log.Infof("[Sweeper Manager] Started (interval=%s)", m.interval)
}

// Stop signals the worker and waits for an in-flight sweep to return.
// The lock is not held while waiting.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}

	log.Info("[Sweeper Manager] Stopping...")
	m.ticker.Stop()
	close(m.stopCh)
	m.running = false
	wg := m.wg
	m.mu.Unlock()

	wg.Wait()
	log.Info("[Sweeper Manager] Stopped successfully")
}

// Running reports whether the ticker loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker(wg *sync.WaitGroup, ticker *time.Ticker, stopCh <-chan struct{}) {
	defer wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-stopCh:
					cancel()
				case <-ctx.Done():
				}
			}()
			if _, err := m.sweeper.Sweep(ctx); err != nil {
				log.Errorf("[Sweeper Manager] sweep failed: %v", err)
			}
			cancel()
		}
	}
}
