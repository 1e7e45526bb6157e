package audit

import "time"

// TimelineFilters holds the query filters for the audit timeline.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	Actor      string
	TargetType string
	Action     string
	Severity   string
	Page       int
	PageSize   int
}

// TimelineRow is one audit timeline entry.
type TimelineRow struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Action      string    `json:"action"`
	ActorName   string    `json:"actor_name"`
	ActorRole   string    `json:"actor_role"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	TargetName  string    `json:"target_name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity"`
}

// PagingInfo carries pagination metadata for timeline pages.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with their paging metadata.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
