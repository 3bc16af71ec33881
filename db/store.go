package db

import (
	"context"
	"errors"

	"cloudburst/models"
)

// ErrNotFound is returned when a point read hits a missing path.
var ErrNotFound = errors.New("not found")

// Store is the data-layer interface the handlers are written against. The
// production implementation is backed by the Firebase Realtime Database; an
// in-memory implementation backs tests and credential-less development runs.
//
// The store gives no cross-entity transaction guarantees. Multi-write flows
// (alert record plus per-node back-references) are independent writes with
// no rollback; the one atomic primitive is the create-if-absent used for
// node registration.
type Store interface {
	Close() error

	// --- Nodes ---

	// CreateNode writes a full node subtree if and only if the id is not
	// already taken. Returns a DuplicateIDError otherwise.
	CreateNode(ctx context.Context, id string, node *models.Node) error
	GetNode(ctx context.Context, id string) (*models.Node, error)
	GetAllNodes(ctx context.Context) (map[string]models.Node, error)
	// UpdateNodeMetadata overwrites the metadata subtree unconditionally.
	UpdateNodeMetadata(ctx context.Context, id string, meta *models.NodeMetadata) error
	// DeleteNode removes the entire subtree. Irreversible; alerts and
	// contacts referencing the id are left dangling.
	DeleteNode(ctx context.Context, id string) error
	PutNodeRealtime(ctx context.Context, id string, rt *models.NodeRealtime) error
	AppendNodeReading(ctx context.Context, id, key string, r models.Reading) error
	GetNodeHistory(ctx context.Context, id string) (map[string]models.Reading, error)
	DeleteNodeReading(ctx context.Context, id, key string) error
	PutNodeAlertRef(ctx context.Context, nodeID string, ref models.AlertRef) error

	// --- Alerts ---

	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	GetAllAlerts(ctx context.Context) (map[string]models.Alert, error)
	UpdateAlert(ctx context.Context, alert *models.Alert) error

	// --- Contacts ---

	CreateContact(ctx context.Context, contact *models.Contact) error
	GetContact(ctx context.Context, id string) (*models.Contact, error)
	GetAllContacts(ctx context.Context) (map[string]models.Contact, error)
	DeleteContact(ctx context.Context, id string) error

	// --- Logs ---

	AppendLog(ctx context.Context, entry *models.LogEntry) error
	// GetRecentLogs returns up to limit entries, oldest first, using a
	// server-side limit query rather than loading the full set.
	GetRecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error)

	// --- Settings ---

	GetSettings(ctx context.Context) (*models.Settings, error)
	PutSettings(ctx context.Context, s *models.Settings) error

	// --- Notifications ---

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetAllNotifications(ctx context.Context) (map[string]models.Notification, error)

	// --- Users ---

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
	StorePasswordHash(ctx context.Context, userID, passwordHash string) error
	GetPasswordHash(ctx context.Context, userID string) (string, error)

	// --- Bulk ---

	Export(ctx context.Context) (*models.DatabaseDump, error)
	Import(ctx context.Context, dump *models.DatabaseDump) error
}
