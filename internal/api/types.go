package api

import "time"

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Running   bool      `json:"running"`
	LastTick  time.Time `json:"last_tick,omitzero"`
	TickCount uint64    `json:"tick_count"`
	LastError string    `json:"last_error,omitempty"`
}

// DependencyStatus mirrors one external binary check.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	InboxDir     string             `json:"inbox_dir"`
	OutputDir    string             `json:"output_dir"`
	JobCounts    map[string]int     `json:"job_counts"`
	TotalTracked int                `json:"total_tracked"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// JobView is one tracked job as exposed over the API.
type JobView struct {
	Key           string     `json:"key"`
	Path          string     `json:"path"`
	Status        string     `json:"status"`
	SizeBytes     int64      `json:"size_bytes"`
	Size          string     `json:"size"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	FailureReason string     `json:"failure_reason,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	DiscoveredAt  time.Time  `json:"discovered_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// QueueResponse is returned by GET /api/v1/queue.
type QueueResponse struct {
	Jobs []JobView `json:"jobs"`
}

// FailedRecord is one quarantine entry.
type FailedRecord struct {
	JobKey         string    `json:"job_key"`
	Path           string    `json:"path"`
	FailedAt       time.Time `json:"failed_at"`
	Classification string    `json:"classification"`
	RetryCount     int       `json:"retry_count"`
	MaxRetries     int       `json:"max_retries"`
	Reason         string    `json:"reason"`
	RecoveryHint   string    `json:"recovery_hint"`
}

// FailedResponse is returned by GET /api/v1/failed.
type FailedResponse struct {
	Records []FailedRecord `json:"records"`
}

// MetricsResponse is returned by GET /api/v1/metrics.
type MetricsResponse struct {
	TotalAttempts        int64         `json:"total_attempts"`
	Completed            int64         `json:"completed"`
	Retried              int64         `json:"retried"`
	FailedTerminally     int64         `json:"failed_terminally"`
	SuccessRate          float64       `json:"success_rate"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`
	TotalOutputBytes     int64         `json:"total_output_bytes"`
	TotalOutput          string        `json:"total_output"`
	Recent               []AttemptView `json:"recent"`
}

// AttemptView is one recorded conversion attempt.
type AttemptView struct {
	JobKey          string    `json:"job_key"`
	Outcome         string    `json:"outcome"`
	DurationSeconds float64   `json:"duration_seconds"`
	SizeBytes       int64     `json:"size_bytes"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}
