package models

// Signal weights and trigger threshold for the suspicious-activity counter.
// Rapid interactions (below the 100ms floor) weigh 1; a positive automation
// scan weighs 3; the one-shot risk flag raises at 5.
const (
	RiskWeightRapidInteraction = 1
	RiskWeightAutomation       = 3
	RiskFlagThreshold          = 5
)

// EnvironmentScan is the one-time client report of automation markers.
// AutomationGlobals is true when the client found injected driver globals
// such as window._phantom or window.__selenium_unwrapped.
type EnvironmentScan struct {
	UserAgent         string `json:"user_agent"`
	WebDriver         bool   `json:"web_driver"`
	AutomationGlobals bool   `json:"automation_globals"`
}

// SessionRisk is the current risk state of one browsing session. Counter is
// monotonically non-decreasing for the session's lifetime; Flagged latches
// true once the counter crosses the threshold and never resets.
type SessionRisk struct {
	Counter int  `json:"counter"`
	Flagged bool `json:"flagged"`
}
