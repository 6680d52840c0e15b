package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/listener"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

const stockKeyPrefix = "stock:"

// StockKey returns the shared key holding a station's catalog snapshot.
func StockKey(stationID string) string {
	return stockKeyPrefix + stationID
}

// StockUpdate is pushed to listeners after every catalog change.
type StockUpdate struct {
	StationID string
	Catalog   model.StockCatalog
}

// StockService owns the per-station inventory catalogs. Every mutation is a
// read-modify-write of the station's whole snapshot: clamp, re-derive
// status, publish, notify. Each station's key has exactly one writing
// context — this service for the stations it serves; callers must not point
// two instances at the same station.
type StockService struct {
	bus       *bus.Bus
	listeners *listener.Registry[StockUpdate]

	mu sync.Mutex
	// pubMu serializes publishes outside mu so an incoming remote replace
	// can never interlock with an outgoing publish.
	pubMu sync.Mutex

	catalogs map[string]model.StockCatalog
	watches  map[string]func()
}

func NewStockService(b *bus.Bus) *StockService {
	return &StockService{
		bus:       b,
		listeners: listener.NewRegistry[StockUpdate](),
		catalogs:  make(map[string]model.StockCatalog),
		watches:   make(map[string]func()),
	}
}

// AddListener registers fn for catalog updates; the returned func removes it.
func (s *StockService) AddListener(fn func(StockUpdate)) func() {
	return s.listeners.Add(fn)
}

// Load returns the station's catalog, materializing and persisting the
// default template on first access or when the persisted snapshot is
// unreadable. It never fails.
func (s *StockService) Load(ctx context.Context, stationID string) model.StockCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, stationID).Clone()
}

// loadLocked returns the live cached catalog, reading it in on first use.
func (s *StockService) loadLocked(ctx context.Context, stationID string) model.StockCatalog {
	if cat, ok := s.catalogs[stationID]; ok {
		return cat
	}

	var cat model.StockCatalog
	ok, err := s.bus.Load(ctx, StockKey(stationID), &cat)
	if err != nil {
		log.Printf("[Stock] load %s failed, using defaults: %v", stationID, err)
		ok = false
	}
	if !ok || len(cat) == 0 {
		cat = DefaultCatalog()
		// Persist immediately so subsequent loads are stable.
		if err := s.bus.Publish(ctx, StockKey(stationID), cat); err != nil {
			log.Printf("[Stock] persist defaults for %s failed: %v", stationID, err)
		}
	}
	s.catalogs[stationID] = cat
	s.watchLocked(stationID)
	return cat
}

// watchLocked subscribes to remote writes of the station key so a change
// from another context replaces the local cache (last writer wins — stock
// snapshots carry no merge).
func (s *StockService) watchLocked(stationID string) {
	if _, ok := s.watches[stationID]; ok {
		return
	}
	s.watches[stationID] = s.bus.Subscribe(StockKey(stationID), func(raw []byte) {
		s.onRemoteChange(stationID, raw)
	})
}

func (s *StockService) onRemoteChange(stationID string, raw []byte) {
	s.mu.Lock()
	if raw == nil {
		delete(s.catalogs, stationID)
		s.mu.Unlock()
		return
	}
	var cat model.StockCatalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		log.Printf("[Stock] ignoring corrupt remote catalog for %s: %v", stationID, err)
		s.mu.Unlock()
		return
	}
	s.catalogs[stationID] = cat
	snapshot := cat.Clone()
	s.mu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
}

// UpdateAmount sets an item's amount, clamped to [0, capacity], re-derives
// its status, persists the whole catalog and notifies listeners.
// Returns false when the category or item is unknown.
func (s *StockService) UpdateAmount(ctx context.Context, stationID, category, itemID string, amount float64) bool {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	items, ok := cat[category]
	if !ok {
		s.mu.Unlock()
		return false
	}
	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	if amount < 0 {
		amount = 0
	}
	if amount > items[idx].Capacity {
		amount = items[idx].Capacity
	}
	items[idx].Amount = amount
	items[idx].Status = items[idx].DeriveStatus()

	snapshot := cat.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, stationID, snapshot)
	s.pubMu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
	return true
}

// Deplete decrements an item by usage when it has enough stock, re-derives
// its status, persists and notifies. The sufficiency check and the decrement
// happen under the same lock, so a concurrent amount write can neither be
// lost nor overwritten with a stale value. An insufficient item is skipped
// and reported, never an error.
func (s *StockService) Deplete(ctx context.Context, stationID, category, itemID string, usage float64) model.ResourceOutcome {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	items, ok := cat[category]
	if !ok {
		s.mu.Unlock()
		return model.ResourceOutcome{ItemID: itemID, Reason: "item vanished"}
	}
	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.ResourceOutcome{ItemID: itemID, Reason: "item vanished"}
	}
	if items[idx].Amount < usage {
		amount := items[idx].Amount
		s.mu.Unlock()
		log.Printf("[Stock] deplete %s/%s on %s: insufficient stock (%.3f < %.3f), skipped",
			category, itemID, stationID, amount, usage)
		return model.ResourceOutcome{ItemID: itemID, Reason: "insufficient stock"}
	}

	items[idx].Amount -= usage
	if items[idx].Amount < 0 {
		items[idx].Amount = 0
	}
	items[idx].Status = items[idx].DeriveStatus()

	snapshot := cat.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, stationID, snapshot)
	s.pubMu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
	return model.ResourceOutcome{ItemID: itemID, Used: usage, Applied: true}
}

// RestockFull sets an item back to full capacity.
func (s *StockService) RestockFull(ctx context.Context, stationID, category, itemID string) bool {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	var capacity float64
	found := false
	for _, it := range cat[category] {
		if it.ID == itemID {
			capacity = it.Capacity
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return false
	}
	return s.UpdateAmount(ctx, stationID, category, itemID, capacity)
}

// AddItem appends a new item to a category. Returns false when an item with
// the same id already exists there. Status is derived fresh from the new
// thresholds, never inherited from a previously deleted item.
func (s *StockService) AddItem(ctx context.Context, stationID, category string, req model.AddItemRequest) bool {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	for _, it := range cat[category] {
		if it.ID == req.ID {
			s.mu.Unlock()
			return false
		}
	}

	item := model.StockItem{
		ID:                req.ID,
		Name:              req.Name,
		Category:          category,
		Amount:            req.Amount,
		Capacity:          req.Capacity,
		Unit:              req.Unit,
		LowThreshold:      req.LowThreshold,
		CriticalThreshold: req.CriticalThreshold,
	}
	if item.Amount < 0 {
		item.Amount = 0
	}
	if item.Amount > item.Capacity {
		item.Amount = item.Capacity
	}
	item.Status = item.DeriveStatus()
	cat[category] = append(cat[category], item)

	snapshot := cat.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, stationID, snapshot)
	s.pubMu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
	return true
}

// DeleteItem removes an item from a category. Returns false when unknown.
func (s *StockService) DeleteItem(ctx context.Context, stationID, category, itemID string) bool {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	items, ok := cat[category]
	if !ok {
		s.mu.Unlock()
		return false
	}
	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	cat[category] = append(items[:idx], items[idx+1:]...)

	snapshot := cat.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, stationID, snapshot)
	s.pubMu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
	return true
}

// Available returns the items of a category that still have stock, in
// catalog order. Used to decide which menu options a station may offer.
func (s *StockService) Available(ctx context.Context, stationID, category string) []model.StockItem {
	s.mu.Lock()
	cat := s.loadLocked(ctx, stationID)
	items := cat[category]
	out := make([]model.StockItem, 0, len(items))
	for _, it := range items {
		if it.Amount > 0 {
			out = append(out, it)
		}
	}
	s.mu.Unlock()
	return out
}

// Reset overwrites the station's catalog with the default template.
func (s *StockService) Reset(ctx context.Context, stationID string) model.StockCatalog {
	s.mu.Lock()
	cat := DefaultCatalog()
	s.catalogs[stationID] = cat
	s.watchLocked(stationID)
	snapshot := cat.Clone()
	s.pubMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, stationID, snapshot)
	s.pubMu.Unlock()

	s.listeners.Notify(StockUpdate{StationID: stationID, Catalog: snapshot})
	return snapshot
}

func (s *StockService) persist(ctx context.Context, stationID string, cat model.StockCatalog) {
	if err := s.bus.Publish(ctx, StockKey(stationID), cat); err != nil {
		log.Printf("[Stock] persist %s failed: %v", stationID, err)
	}
}

// Close drops remote watches and listeners.
func (s *StockService) Close() {
	s.mu.Lock()
	for _, remove := range s.watches {
		remove()
	}
	s.watches = make(map[string]func())
	s.mu.Unlock()
	s.listeners.Clear()
}
