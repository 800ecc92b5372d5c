package websocket

import (
	"context"
	"time"

	"github.com/inconshreveable/log15"
)

// DefaultSweepInterval is how often the monitor reconciles in-process room
// resources against the store when no interval is configured.
const DefaultSweepInterval = 30 * time.Second

// Monitor is the periodic reconciliation sweep. It is the only component
// allowed to delete process-local resources for a room whose sockets all
// vanished without a clean leave-room: it retires state for rooms that are
// inactive or have no persisted players, then asks the coordinator to
// collect the corresponding store rows.
//
// With a lobby interval configured, the monitor also drives periodic lobby
// broadcasts so the room list self-heals for idle subscribers.
type Monitor struct {
	hub           *Hub
	interval      time.Duration
	lobbyInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
	log           log15.Logger
}

// NewMonitor creates a monitor. lobbyInterval zero disables periodic lobby
// pushes (event-driven pushes still happen).
func NewMonitor(hub *Hub, interval, lobbyInterval time.Duration, logger log15.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = log15.New("module", "monitor")
	}
	return &Monitor{
		hub:           hub,
		interval:      interval,
		lobbyInterval: lobbyInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		log:           logger,
	}
}

// Run drives the sweep loop until Stop is called. Meant to run on its own
// goroutine.
func (m *Monitor) Run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var lobbyTick <-chan time.Time
	if m.lobbyInterval > 0 {
		lobbyTicker := time.NewTicker(m.lobbyInterval)
		defer lobbyTicker.Stop()
		lobbyTick = lobbyTicker.C
	}

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep(context.Background())
		case <-lobbyTick:
			m.hub.NotifyLobby(context.Background())
		}
	}
}

// Stop halts the loop and waits for it to exit. Needed for clean process
// shutdown and for tests.
func (m *Monitor) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

// Sweep performs one reconciliation pass and reports the store-side cleanup
// counts. Exposed for the admin endpoint and tests.
func (m *Monitor) Sweep(ctx context.Context) (roomsCleaned, playersCleaned int) {
	for _, roomID := range m.hub.TrackedRooms() {
		alive, err := m.hub.coord.RoomAlive(ctx, roomID)
		if err != nil {
			m.log.Error("liveness check failed", "room", roomID, "err", err)
			continue
		}
		if !alive {
			m.hub.RetireRoom(roomID)
		}
	}

	roomsCleaned, playersCleaned, err := m.hub.coord.Cleanup(ctx)
	if err != nil {
		m.log.Error("store cleanup failed", "err", err)
	}
	return roomsCleaned, playersCleaned
}
