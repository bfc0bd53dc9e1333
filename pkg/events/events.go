// Package events defines the contribution and plugin catalog notifications published
// on the event bus.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Event is implemented by every notification; pointers returned by New satisfy it too.
type Event interface {
	GetType() EventType
}

const Topic = "sudao.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Contribution lifecycle events.
	ContributionStartedEvent       EventType = "contribution.started"
	ContributionStepCompletedEvent EventType = "contribution.step.completed"
	ContributionCompletedEvent     EventType = "contribution.completed"
	ContributionFailedEvent        EventType = "contribution.failed"
	ContributionResetEvent         EventType = "contribution.reset"
	ContributionReconciledEvent    EventType = "contribution.reconciled"

	// Plugin catalog events.
	PluginInstalledEvent   EventType = "plugin.installed"
	PluginUninstalledEvent EventType = "plugin.uninstalled"
	PluginToggledEvent     EventType = "plugin.toggled"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

type ContributionStarted struct {
	BaseEvent

	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (ContributionStarted) GetType() EventType {
	return ContributionStartedEvent
}

// ContributionStepCompleted carries the step result in its JSON envelope form.
type ContributionStepCompleted struct {
	BaseEvent

	Step     int             `json:"step"`
	StepName string          `json:"step_name"`
	Result   json.RawMessage `json:"result"`
	Duration time.Duration   `json:"duration"`
}

func (ContributionStepCompleted) GetType() EventType {
	return ContributionStepCompletedEvent
}

type ContributionCompleted struct {
	BaseEvent

	Account    string `json:"account"`
	Amount     string `json:"amount"`
	ActualOut  string `json:"actual_out"`
	Deposit    string `json:"deposit"`
	Governance string `json:"governance"`
}

func (ContributionCompleted) GetType() EventType {
	return ContributionCompletedEvent
}

type ContributionFailed struct {
	BaseEvent

	Account         string `json:"account"`
	Step            int    `json:"step"`
	StepName        string `json:"step_name"`
	ErrorKind       string `json:"error_kind"`
	Reason          string `json:"reason"`
	OutcomeUnknown  bool   `json:"outcome_unknown"`
	ApprovalGranted bool   `json:"approval_granted"`
}

func (ContributionFailed) GetType() EventType {
	return ContributionFailedEvent
}

type ContributionReset struct {
	BaseEvent

	Amount string `json:"amount"`
}

func (ContributionReset) GetType() EventType {
	return ContributionResetEvent
}

type ContributionReconciled struct {
	BaseEvent

	Status     string `json:"status"`
	Deposit    string `json:"deposit"`
	Governance string `json:"governance"`
}

func (ContributionReconciled) GetType() EventType {
	return ContributionReconciledEvent
}

type PluginInstalled struct {
	BaseEvent

	PluginID string `json:"plugin_id"`
}

func (PluginInstalled) GetType() EventType {
	return PluginInstalledEvent
}

type PluginUninstalled struct {
	BaseEvent

	PluginID string `json:"plugin_id"`
}

func (PluginUninstalled) GetType() EventType {
	return PluginUninstalledEvent
}

type PluginToggled struct {
	BaseEvent

	PluginID string `json:"plugin_id"`
	Enabled  bool   `json:"enabled"`
}

func (PluginToggled) GetType() EventType {
	return PluginToggledEvent
}

// New returns an empty event of the given type for decoding, or false when the type
// is unknown.
func New(eventType EventType) (Event, bool) {
	switch eventType {
	case ContributionStartedEvent:
		return &ContributionStarted{}, true
	case ContributionStepCompletedEvent:
		return &ContributionStepCompleted{}, true
	case ContributionCompletedEvent:
		return &ContributionCompleted{}, true
	case ContributionFailedEvent:
		return &ContributionFailed{}, true
	case ContributionResetEvent:
		return &ContributionReset{}, true
	case ContributionReconciledEvent:
		return &ContributionReconciled{}, true
	case PluginInstalledEvent:
		return &PluginInstalled{}, true
	case PluginUninstalledEvent:
		return &PluginUninstalled{}, true
	case PluginToggledEvent:
		return &PluginToggled{}, true
	default:
		return nil, false
	}
}
