package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloudburst/models"
)

// MemoryStore is an in-memory Store used by tests and by development runs
// without Firebase credentials. It mirrors the realtime store's semantics:
// point reads/writes, create-if-absent for nodes, read-side log limiting.
type MemoryStore struct {
	mu            sync.RWMutex
	nodes         map[string]*models.Node
	alerts        map[string]*models.Alert
	contacts      map[string]*models.Contact
	logs          []models.LogEntry
	settings      *models.Settings
	notifications map[string]*models.Notification
	users         map[string]*models.User
	passwords     map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:         make(map[string]*models.Node),
		alerts:        make(map[string]*models.Alert),
		contacts:      make(map[string]*models.Contact),
		notifications: make(map[string]*models.Notification),
		users:         make(map[string]*models.User),
		passwords:     make(map[string]string),
	}
}

func (m *MemoryStore) Close() error { return nil }

// clone deep-copies via JSON so callers can't mutate stored state. The
// entities are all plain data, so a marshal round-trip is enough.
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// --- Node operations ---

func (m *MemoryStore) CreateNode(_ context.Context, id string, node *models.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nodes[id]; exists {
		return &models.DuplicateIDError{Entity: "node", ID: id}
	}
	m.nodes[id] = clone(node)
	return nil
}

func (m *MemoryStore) GetNode(_ context.Context, id string) (*models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(node), nil
}

func (m *MemoryStore) GetAllNodes(_ context.Context) (map[string]models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make(map[string]models.Node, len(m.nodes))
	for id, node := range m.nodes {
		nodes[id] = *clone(node)
	}
	return nodes, nil
}

func (m *MemoryStore) UpdateNodeMetadata(_ context.Context, id string, meta *models.NodeMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		// Matches the realtime store: a point write creates the path.
		node = &models.Node{}
		m.nodes[id] = node
	}
	node.Metadata = *clone(meta)
	return nil
}

func (m *MemoryStore) DeleteNode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
	return nil
}

func (m *MemoryStore) PutNodeRealtime(_ context.Context, id string, rt *models.NodeRealtime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		node = &models.Node{}
		m.nodes[id] = node
	}
	node.Realtime = *clone(rt)
	return nil
}

func (m *MemoryStore) AppendNodeReading(_ context.Context, id, key string, reading models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		node = &models.Node{}
		m.nodes[id] = node
	}
	if node.History == nil {
		node.History = make(map[string]models.Reading)
	}
	node.History[key] = reading
	return nil
}

func (m *MemoryStore) GetNodeHistory(_ context.Context, id string) (map[string]models.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make(map[string]models.Reading)
	if node, ok := m.nodes[id]; ok {
		for k, v := range node.History {
			history[k] = v
		}
	}
	return history, nil
}

func (m *MemoryStore) DeleteNodeReading(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.nodes[id]; ok {
		delete(node.History, key)
	}
	return nil
}

func (m *MemoryStore) PutNodeAlertRef(_ context.Context, nodeID string, ref models.AlertRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		node = &models.Node{}
		m.nodes[nodeID] = node
	}
	if node.Alerts == nil {
		node.Alerts = make(map[string]models.AlertRef)
	}
	node.Alerts[ref.AlertID] = ref
	return nil
}

// --- Alert operations ---

func (m *MemoryStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = clone(alert)
	return nil
}

func (m *MemoryStore) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(alert), nil
}

func (m *MemoryStore) GetAllAlerts(_ context.Context) (map[string]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alerts := make(map[string]models.Alert, len(m.alerts))
	for id, alert := range m.alerts {
		alerts[id] = *clone(alert)
	}
	return alerts, nil
}

func (m *MemoryStore) UpdateAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = clone(alert)
	return nil
}

// --- Contact operations ---

func (m *MemoryStore) CreateContact(_ context.Context, contact *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[contact.ID] = clone(contact)
	return nil
}

func (m *MemoryStore) GetContact(_ context.Context, id string) (*models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contact, ok := m.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(contact), nil
}

func (m *MemoryStore) GetAllContacts(_ context.Context) (map[string]models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contacts := make(map[string]models.Contact, len(m.contacts))
	for id, contact := range m.contacts {
		contacts[id] = *clone(contact)
	}
	return contacts, nil
}

func (m *MemoryStore) DeleteContact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contacts, id)
	return nil
}

// --- Log operations ---

func (m *MemoryStore) AppendLog(_ context.Context, entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *clone(entry))
	return nil
}

func (m *MemoryStore) GetRecentLogs(_ context.Context, limit int) ([]models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]models.LogEntry, len(m.logs))
	copy(entries, m.logs)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// --- Settings operations ---

func (m *MemoryStore) GetSettings(_ context.Context) (*models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, ErrNotFound
	}
	return clone(m.settings), nil
}

func (m *MemoryStore) PutSettings(_ context.Context, s *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = clone(s)
	return nil
}

// --- Notification operations ---

func (m *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = clone(n)
	return nil
}

func (m *MemoryStore) GetAllNotifications(_ context.Context) (map[string]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notifications := make(map[string]models.Notification, len(m.notifications))
	for id, n := range m.notifications {
		notifications[id] = *clone(n)
	}
	return notifications, nil
}

// --- User operations ---

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = clone(user)
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(user), nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return clone(user), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, *clone(user))
	}
	return users, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = clone(user)
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	return nil
}

func (m *MemoryStore) StorePasswordHash(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[userID] = passwordHash
	return nil
}

func (m *MemoryStore) GetPasswordHash(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.passwords[userID]
	if !ok {
		return "", fmt.Errorf("password hash not found for user: %s", userID)
	}
	return hash, nil
}

// --- Bulk operations ---

func (m *MemoryStore) Export(ctx context.Context) (*models.DatabaseDump, error) {
	dump := &models.DatabaseDump{ExportedAt: time.Now().UnixMilli()}

	var err error
	if dump.Nodes, err = m.GetAllNodes(ctx); err != nil {
		return nil, err
	}
	if dump.Alerts, err = m.GetAllAlerts(ctx); err != nil {
		return nil, err
	}
	if dump.Contacts, err = m.GetAllContacts(ctx); err != nil {
		return nil, err
	}
	if dump.Notifications, err = m.GetAllNotifications(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	dump.Logs = make(map[string]models.LogEntry, len(m.logs))
	for _, entry := range m.logs {
		dump.Logs[entry.ID] = entry
	}
	if m.settings != nil {
		dump.Settings = clone(m.settings)
	}
	return dump, nil
}

func (m *MemoryStore) Import(_ context.Context, dump *models.DatabaseDump) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dump.Nodes != nil {
		m.nodes = make(map[string]*models.Node, len(dump.Nodes))
		for id := range dump.Nodes {
			node := dump.Nodes[id]
			m.nodes[id] = clone(&node)
		}
	}
	if dump.Alerts != nil {
		m.alerts = make(map[string]*models.Alert, len(dump.Alerts))
		for id := range dump.Alerts {
			alert := dump.Alerts[id]
			m.alerts[id] = clone(&alert)
		}
	}
	if dump.Contacts != nil {
		m.contacts = make(map[string]*models.Contact, len(dump.Contacts))
		for id := range dump.Contacts {
			contact := dump.Contacts[id]
			m.contacts[id] = clone(&contact)
		}
	}
	if dump.Logs != nil {
		m.logs = m.logs[:0]
		for _, entry := range dump.Logs {
			m.logs = append(m.logs, entry)
		}
	}
	if dump.Notifications != nil {
		m.notifications = make(map[string]*models.Notification, len(dump.Notifications))
		for id := range dump.Notifications {
			n := dump.Notifications[id]
			m.notifications[id] = clone(&n)
		}
	}
	if dump.Settings != nil {
		m.settings = clone(dump.Settings)
	}
	return nil
}
