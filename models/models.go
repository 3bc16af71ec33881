// models.go
// Defines the core data structures shared by the Cloudburst API handlers and the store.

package models

// NodeType defines the kind of device a node record describes.
type NodeType string

const (
	NodeTypeSensor  NodeType = "sensor"
	NodeTypeGateway NodeType = "gateway"
)

// Severity is the alert severity level.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s Severity) bool {
	return s == SeverityWarning || s == SeverityCritical
}

// NodeMetadata is the static description of a node, written at registration
// and overwritten wholesale on edit.
type NodeMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        NodeType `json:"type"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Altitude    float64  `json:"altitude,omitempty"`
	Description string   `json:"description,omitempty"`
	Installer   string   `json:"installer,omitempty"`
	CreatedAt   int64    `json:"created_at"` // epoch millis
	Neighbors   []string `json:"neighbors,omitempty"`
}

// NodeRealtime holds the latest-known reading set for a node. It is
// overwritten on every sensor update. Humidity is nil for sensor-only nodes
// and RSSI is nil for gateways.
type NodeRealtime struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	RSSI        *int     `json:"rssi,omitempty"`
	LastUpdate  int64    `json:"last_update,omitempty"` // epoch millis, 0 = never
	Status      string   `json:"status,omitempty"`
}

// Reading is one timestamped history sample. History entries are keyed by
// their write-time epoch millis and never mutated after the append.
type Reading struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	RSSI        *int     `json:"rssi,omitempty"`
	Timestamp   int64    `json:"timestamp"` // epoch millis
}

// AlertRef is the denormalized back-reference written under a node's subtree
// for every alert that affects it. Used for node-centric queries.
type AlertRef struct {
	AlertID   string   `json:"alert_id"`
	Severity  Severity `json:"severity"`
	CreatedAt int64    `json:"created_at"`
}

// Node is a full node subtree: nodes/{id}/metadata|realtime|history|alerts.
type Node struct {
	Metadata NodeMetadata        `json:"metadata"`
	Realtime NodeRealtime        `json:"realtime"`
	History  map[string]Reading  `json:"history,omitempty"`
	Alerts   map[string]AlertRef `json:"alerts,omitempty"`
}

// MaxAlertMessageLength caps the free-text alert message.
const MaxAlertMessageLength = 500

// Alert is a severity-tagged message tied to one or more nodes.
// Acknowledgement is monotonic: once set it is never reversed.
type Alert struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	AffectedNodes  []string `json:"affected_nodes"`
	CreatedAt      int64    `json:"created_at"`
	Acknowledged   bool     `json:"acknowledged"`
	AcknowledgedBy string   `json:"acknowledged_by,omitempty"`
	AcknowledgedAt int64    `json:"acknowledged_at,omitempty"`
	Recipients     []string `json:"recipients,omitempty"`
	SMSSent        bool     `json:"sms_sent"`
}

// NotifyPreference selects how a contact wants to be notified.
type NotifyPreference string

const (
	NotifyBySMS   NotifyPreference = "sms"
	NotifyByEmail NotifyPreference = "email"
	NotifyByBoth  NotifyPreference = "both"
)

// Contact is a notification recipient associated with one or more nodes.
type Contact struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone"` // normalized +91XXXXXXXXXX
	Email           string           `json:"email,omitempty"`
	Preference      NotifyPreference `json:"preference"`
	AssociatedNodes []string         `json:"associated_nodes,omitempty"`
	CreatedAt       int64            `json:"created_at"`
}

// LogType enumerates the event kinds written to the logs subtree.
type LogType string

const (
	LogNodeRegistered    LogType = "node_registered"
	LogNodeUpdated       LogType = "node_updated"
	LogNodeDeleted       LogType = "node_deleted"
	LogAlertCreated      LogType = "alert_created"
	LogAlertAcknowledged LogType = "alert_acknowledged"
	LogSMSDispatched     LogType = "sms_dispatched"
	LogContactAdded      LogType = "contact_added"
	LogContactDeleted    LogType = "contact_deleted"
	LogSettingsSaved     LogType = "settings_saved"
	LogThresholdTripped  LogType = "threshold_tripped"
	LogHistoryCleanup    LogType = "history_cleanup"
	LogDataImport        LogType = "data_import"
)

// LogEntry is an append-only event record. The cap is applied at the read
// side via a limit query, not enforced on write.
type LogEntry struct {
	ID        string                 `json:"id"`
	Type      LogType                `json:"type"`
	Message   string                 `json:"message"`
	Timestamp int64                  `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ThresholdRule configures alerting for one signal.
type ThresholdRule struct {
	Enabled       bool     `json:"enabled"`
	Value         float64  `json:"value"`
	WindowMinutes int      `json:"window_minutes"`
	Severity      Severity `json:"severity"`
}

// ThresholdSettings holds the per-signal alert rules. Temperature and
// humidity trigger above the configured value, pressure and RSSI below it.
type ThresholdSettings struct {
	Temperature ThresholdRule `json:"temperature"`
	Pressure    ThresholdRule `json:"pressure"`
	Humidity    ThresholdRule `json:"humidity"`
	RSSI        ThresholdRule `json:"rssi"`
}

// SystemSettings holds non-alerting dashboard configuration.
type SystemSettings struct {
	UpdateIntervalSeconds int    `json:"update_interval_seconds"`
	RetentionDays         int    `json:"retention_days"`
	MapProvider           string `json:"map_provider,omitempty"`
	MapAPIKey             string `json:"map_api_key,omitempty"`
}

// Settings is the whole settings subtree, persisted as one object on save.
// Last write wins; there is no partial-update merge.
type Settings struct {
	Thresholds ThresholdSettings `json:"thresholds"`
	System     SystemSettings    `json:"system"`
	LastSaved  int64             `json:"last_saved"`
}

// DefaultSettings returns the settings written by the seeder and assumed
// when no settings object exists yet. All threshold rules start disabled.
func DefaultSettings() *Settings {
	return &Settings{
		Thresholds: ThresholdSettings{
			Temperature: ThresholdRule{Value: 45, WindowMinutes: 30, Severity: SeverityWarning},
			Pressure:    ThresholdRule{Value: 950, WindowMinutes: 30, Severity: SeverityCritical},
			Humidity:    ThresholdRule{Value: 95, WindowMinutes: 30, Severity: SeverityWarning},
			RSSI:        ThresholdRule{Value: -110, WindowMinutes: 60, Severity: SeverityWarning},
		},
		System: SystemSettings{
			UpdateIntervalSeconds: 30,
			RetentionDays:         30,
			MapProvider:           "openstreetmap",
		},
	}
}

// NotificationTTLDays is the fixed in-app notification expiry. Expired
// records are never swept by any process; readers filter them out.
const NotificationTTLDays = 7

// Notification is an in-app notification record created alongside an alert.
type Notification struct {
	ID        string   `json:"id"`
	AlertID   string   `json:"alert_id"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	CreatedAt int64    `json:"created_at"`
	ExpiresAt int64    `json:"expires_at"`
}

// UserRole defines the access level of a dashboard user.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleOperator UserRole = "OPERATOR"
	RoleViewer   UserRole = "VIEWER"
)

// User represents an authenticated dashboard user.
type User struct {
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Role      UserRole `json:"role"`
	LastLogin int64    `json:"last_login,omitempty"`
}

// DatabaseDump is the whole-database export payload. Auth data (users,
// password hashes) is deliberately excluded; the dump covers the dashboard
// dataset only.
type DatabaseDump struct {
	Nodes         map[string]Node         `json:"nodes,omitempty"`
	Alerts        map[string]Alert        `json:"alerts,omitempty"`
	Contacts      map[string]Contact      `json:"contacts,omitempty"`
	Logs          map[string]LogEntry     `json:"logs,omitempty"`
	Settings      *Settings               `json:"settings,omitempty"`
	Notifications map[string]Notification `json:"notifications,omitempty"`
	ExportedAt    int64                   `json:"exported_at"`
}
