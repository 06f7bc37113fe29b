package store

import (
	"sort"
	"sync"
	"time"

	"rialto/internal/model"
)

// Memory is an in-memory Store used by tests and the seed command. Records
// are copied on read and write so callers never share memory with the store,
// matching the read-then-write semantics of the real record store.
type Memory struct {
	mu            sync.Mutex
	citizens      map[string]model.Citizen
	buildings     map[string]model.Building
	contracts     map[string]model.Contract
	activities    map[string]model.Activity
	stratagems    map[string]model.Stratagem
	transactions  map[string]model.Transaction
	txOrder       []string
	notifications []model.Notification
	relationships map[string]model.Relationship
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		citizens:      make(map[string]model.Citizen),
		buildings:     make(map[string]model.Building),
		contracts:     make(map[string]model.Contract),
		activities:    make(map[string]model.Activity),
		stratagems:    make(map[string]model.Stratagem),
		transactions:  make(map[string]model.Transaction),
		relationships: make(map[string]model.Relationship),
	}
}

// PutCitizen inserts or replaces a citizen record (seeding helper).
func (m *Memory) PutCitizen(c *model.Citizen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.citizens[c.Username] = *c
}

// PutBuilding inserts or replaces a building record (seeding helper).
func (m *Memory) PutBuilding(b *model.Building) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildings[b.ID] = *b
}

func (m *Memory) GetCitizen(username string) (*model.Citizen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.citizens[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (m *Memory) ListCitizens() ([]*model.Citizen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Citizen, 0, len(m.citizens))
	for _, c := range m.citizens {
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *Memory) SetDucats(username string, ducats int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.citizens[username]
	if !ok {
		return ErrNotFound
	}
	c.Ducats = ducats
	m.citizens[username] = c
	return nil
}

func (m *Memory) SetPosition(username string, pos model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.citizens[username]
	if !ok {
		return ErrNotFound
	}
	c.Position = &pos
	m.citizens[username] = c
	return nil
}

func (m *Memory) GetBuilding(id string) (*model.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buildings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := b
	return &out, nil
}

func (m *Memory) SetOwner(id, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buildings[id]
	if !ok {
		return ErrNotFound
	}
	b.Owner = owner
	m.buildings[id] = b
	return nil
}

func (m *Memory) SetRentPrice(id string, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buildings[id]
	if !ok {
		return ErrNotFound
	}
	b.RentPrice = price
	m.buildings[id] = b
	return nil
}

func (m *Memory) GetContract(id string) (*model.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (m *Memory) CreateContract(c *model.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = *c
	return nil
}

func (m *Memory) SetContractStatus(id string, status model.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	m.contracts[id] = c
	return nil
}

func (m *Memory) SetTargetAmount(id string, remaining int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return ErrNotFound
	}
	c.TargetAmount = remaining
	m.contracts[id] = c
	return nil
}

func (m *Memory) CreateActivity(a *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[a.ID] = *a
	return nil
}

func (m *Memory) GetActivity(id string) (*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := a
	return &out, nil
}

func (m *Memory) SetActivityStatus(id string, status model.ActivityStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	m.activities[id] = a
	return nil
}

func (m *Memory) DueActivities(now time.Time) ([]*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*model.Activity
	for _, a := range m.activities {
		if a.Status == model.ActivityCreated && !a.EndTime.After(now) {
			out := a
			due = append(due, &out)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].StartTime.Before(due[j].StartTime)
	})
	return due, nil
}

func (m *Memory) PendingByCitizen(username string) ([]*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*model.Activity
	for _, a := range m.activities {
		if a.Citizen == username && !a.Status.Terminal() {
			out := a
			pending = append(pending, &out)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].EndTime.Before(pending[j].EndTime)
	})
	return pending, nil
}

// AllActivities returns every activity record (test helper).
func (m *Memory) AllActivities() []*model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.Activity
	for _, a := range m.activities {
		out := a
		all = append(all, &out)
	}
	return all
}

func (m *Memory) CreateStratagem(s *model.Stratagem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stratagems[s.ID] = *s
	return nil
}

func (m *Memory) GetStratagem(id string) (*model.Stratagem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stratagems[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s
	return &out, nil
}

func (m *Memory) UpdateStratagem(s *model.Stratagem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stratagems[s.ID]; !ok {
		return ErrNotFound
	}
	m.stratagems[s.ID] = *s
	return nil
}

func (m *Memory) ActiveStratagems() ([]*model.Stratagem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*model.Stratagem
	for _, s := range m.stratagems {
		if s.Status == model.StratagemActive {
			out := s
			active = append(active, &out)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

func (m *Memory) CreateTransaction(t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = *t
	m.txOrder = append(m.txOrder, t.ID)
	return nil
}

func (m *Memory) GetTransaction(id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := t
	return &out, nil
}

func (m *Memory) SetTransactionPhase(id string, phase model.TransactionPhase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	t.Phase = phase
	m.transactions[id] = t
	return nil
}

func (m *Memory) MarkCommitted(id string, executedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = model.TxCommitted
	t.ExecutedAt = executedAt
	m.transactions[id] = t
	return nil
}

func (m *Memory) MarkVoid(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = model.TxVoid
	m.transactions[id] = t
	return nil
}

func (m *Memory) PendingTransactions(olderThan time.Time) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*model.Transaction
	for _, id := range m.txOrder {
		t := m.transactions[id]
		if t.Status == model.TxPending && t.CreatedAt.Before(olderThan) {
			out := t
			pending = append(pending, &out)
		}
	}
	return pending, nil
}

func (m *Memory) RecentTransactions(limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recent []*model.Transaction
	for i := len(m.txOrder) - 1; i >= 0 && len(recent) < limit; i-- {
		t := m.transactions[m.txOrder[i]]
		recent = append(recent, &t)
	}
	return recent, nil
}

// TransactionCount returns the number of ledger entries (test helper).
func (m *Memory) TransactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

func (m *Memory) CreateNotification(n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

// NotificationsFor returns notifications addressed to a citizen (test helper).
func (m *Memory) NotificationsFor(username string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.notifications {
		if n.Citizen == username {
			out = append(out, n)
		}
	}
	return out
}

func (m *Memory) GetRelationship(a, b string) (*model.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, y := model.RelationshipPair(a, b)
	r, ok := m.relationships[x+"|"+y]
	if !ok {
		return nil, ErrNotFound
	}
	out := r
	return &out, nil
}

func (m *Memory) UpsertRelationship(r *model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, y := model.RelationshipPair(r.CitizenA, r.CitizenB)
	rec := *r
	rec.CitizenA, rec.CitizenB = x, y
	m.relationships[x+"|"+y] = rec
	return nil
}
