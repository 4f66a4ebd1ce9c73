package sim

import "time"

// timestampLayout is the wire format for record timestamps. Timestamps are
// simulation-local and always rendered with a trailing Z.
const timestampLayout = "2006-01-02T15:04:05Z"

// DeviceInfo is the device block stamped onto every record.
type DeviceInfo struct {
	DeviceID    string   `json:"device_id"`
	Platform    Platform `json:"platform"`
	OSVersion   string   `json:"os_version"`
	AppVersion  string   `json:"app_version"`
	DeviceModel string   `json:"device_model"`
	Country     string   `json:"country"`
	Language    string   `json:"language"`
}

// UserProperties is the per-user snapshot stamped onto every record.
type UserProperties struct {
	PlayerLevel      int     `json:"player_level"`
	VIPLevel         int     `json:"vip_level"`
	TotalSpentUSD    float64 `json:"total_spent_usd"`
	DaysSinceInstall int     `json:"days_since_install"`
	CohortDate       string  `json:"cohort_date"`
	CurrentChapter   int     `json:"current_chapter"`
}

// Record is one emitted analytics event. Properties hold the event-specific
// payload; everything else is the common envelope.
type Record struct {
	EventID    string            `json:"event_id"`
	EventName  string            `json:"event_name"`
	Timestamp  string            `json:"event_timestamp"`
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	Device     DeviceInfo        `json:"device"`
	Properties UserProperties    `json:"user_properties"`
	ABTests    map[string]string `json:"ab_tests"`
	EventProps map[string]any    `json:"event_properties"`
}

// newRecord assembles a record envelope for an agent at a point in time.
func newRecord(name string, at time.Time, agent *AgentState, day time.Time, props map[string]any) *Record {
	abCopy := make(map[string]string, len(agent.ABTests))
	for k, v := range agent.ABTests {
		abCopy[k] = v
	}
	return &Record{
		EventID:    newEventID(),
		EventName:  name,
		Timestamp:  at.Format(timestampLayout),
		UserID:     agent.UserID,
		SessionID:  agent.SessionID,
		Device:     agent.Device(),
		Properties: agent.Properties(day),
		ABTests:    abCopy,
		EventProps: props,
	}
}
