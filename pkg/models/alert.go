package models

import (
	"time"
)

// CurrentSchemaVersion is stamped on every alert document. The startup
// migration brings older documents up to this version.
const CurrentSchemaVersion = 2

// HistoryEntry records one status or severity transition on an alert.
// Entries are append-only; storage order is creation order.
type HistoryEntry struct {
	EventID    string    `bson:"eventId" json:"eventId"`
	Event      string    `bson:"event" json:"event"`
	Type       string    `bson:"type" json:"type"` // "new", "severity", "status" or "action"
	Severity   Severity  `bson:"severity,omitempty" json:"severity,omitempty"`
	Status     Status    `bson:"status,omitempty" json:"status,omitempty"`
	Text       string    `bson:"text,omitempty" json:"text,omitempty"`
	Actor      string    `bson:"actor,omitempty" json:"actor,omitempty"`
	UpdateTime time.Time `bson:"updateTime" json:"updateTime"`
}

// History entry types.
const (
	HistoryNew      = "new"
	HistorySeverity = "severity"
	HistoryStatus   = "status"
	HistoryAction   = "action"
)

// Alert is one logical ongoing alert condition, uniquely identified by the
// (environment, resource, event) triple among non-deleted records. The
// surrogate ID is assigned at creation and preserved across every update
// folded into the same identity.
type Alert struct {
	ID            string `bson:"_id" json:"id"`
	LastReceiveID string `bson:"lastReceiveId" json:"lastReceiveId"`

	Environment string   `bson:"environment" json:"environment"`
	Service     []string `bson:"service,omitempty" json:"service,omitempty"`
	Resource    string   `bson:"resource" json:"resource"`
	Event       string   `bson:"event" json:"event"`
	Group       string   `bson:"group,omitempty" json:"group,omitempty"`
	Origin      string   `bson:"origin,omitempty" json:"origin,omitempty"`

	Severity         Severity        `bson:"severity" json:"severity"`
	PreviousSeverity Severity        `bson:"previousSeverity" json:"previousSeverity"`
	TrendIndication  TrendIndication `bson:"trendIndication" json:"trendIndication"`
	Status           Status          `bson:"status" json:"status"`

	DuplicateCount int `bson:"duplicateCount" json:"duplicateCount"`

	CreateTime      time.Time  `bson:"createTime" json:"createTime"`
	ReceiveTime     time.Time  `bson:"receiveTime" json:"receiveTime"`
	LastReceiveTime time.Time  `bson:"lastReceiveTime" json:"lastReceiveTime"`
	ExpireTime      *time.Time `bson:"expireTime,omitempty" json:"expireTime,omitempty"`
	Timeout         int        `bson:"timeout" json:"timeout"` // seconds; 0 means never expires

	Value      string                 `bson:"value,omitempty" json:"value,omitempty"`
	Text       string                 `bson:"text,omitempty" json:"text,omitempty"`
	Tags       []string               `bson:"tags,omitempty" json:"tags,omitempty"`
	Attributes map[string]interface{} `bson:"attributes,omitempty" json:"attributes,omitempty"`

	History []HistoryEntry `bson:"history" json:"history"`

	Type   string `bson:"type,omitempty" json:"type,omitempty"`
	Repeat bool   `bson:"repeat" json:"repeat"`

	RawData   string   `bson:"rawData,omitempty" json:"rawData,omitempty"`
	MoreInfo  string   `bson:"moreInfo,omitempty" json:"moreInfo,omitempty"`
	GraphURLs []string `bson:"graphUrls,omitempty" json:"graphUrls,omitempty"`

	// Revision backs the store's optimistic-concurrency check. It is bumped
	// on every successful update; a stale revision fails the write.
	Revision      int64 `bson:"revision" json:"-"`
	SchemaVersion int   `bson:"schemaVersion" json:"-"`
}

// RecomputeExpireTime derives expireTime from lastReceiveTime and timeout.
// A zero timeout clears it: the alert never auto-expires.
func (a *Alert) RecomputeExpireTime() {
	if a.Timeout <= 0 {
		a.ExpireTime = nil
		return
	}
	t := a.LastReceiveTime.Add(time.Duration(a.Timeout) * time.Second)
	a.ExpireTime = &t
}

// AppendHistory appends one ledger entry. History is never rewritten or
// reordered after insertion.
func (a *Alert) AppendHistory(entry HistoryEntry) {
	a.History = append(a.History, entry)
}

// MergeTags unions the given tags into the alert's tag set, preserving
// first-seen order and collapsing duplicates.
func (a *Alert) MergeTags(tags []string) {
	seen := make(map[string]bool, len(a.Tags))
	for _, t := range a.Tags {
		seen[t] = true
	}
	for _, t := range tags {
		if t != "" && !seen[t] {
			a.Tags = append(a.Tags, t)
			seen[t] = true
		}
	}
}

// RemoveTag drops a tag from the alert's tag set if present, reporting
// whether anything changed.
func (a *Alert) RemoveTag(tag string) bool {
	for i, t := range a.Tags {
		if t == tag {
			a.Tags = append(a.Tags[:i], a.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// RawEvent is an inbound alert event as submitted by an external collector.
type RawEvent struct {
	ID          string                 `json:"id,omitempty"`
	Environment string                 `json:"environment"`
	Resource    string                 `json:"resource"`
	Event       string                 `json:"event"`
	Severity    string                 `json:"severity"`
	Service     []string               `json:"service,omitempty"`
	Group       string                 `json:"group,omitempty"`
	Origin      string                 `json:"origin,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Text        string                 `json:"text,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Timeout     *int                   `json:"timeout,omitempty"` // nil means use the engine default
	Type        string                 `json:"type,omitempty"`
	CreateTime  *time.Time             `json:"createTime,omitempty"`
	RawData     string                 `json:"rawData,omitempty"`
	MoreInfo    string                 `json:"moreInfo,omitempty"`
	GraphURLs   []string               `json:"graphUrls,omitempty"`
}

// StatusChangeRequest is an operator-driven status change (ack, close, ...)
// coming from the API layer.
type StatusChangeRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor,omitempty"`
	Text   string `json:"text,omitempty"`
}

// TagRequest adds or removes a single tag on an alert.
type TagRequest struct {
	Tag string `json:"tag"`
}

// AlertFilter narrows alert queries. Zero values mean "no constraint".
type AlertFilter struct {
	Environment string
	Resource    string
	Event       string
	Service     string
	Group       string
	Origin      string
	Status      Status
	Severity    Severity
	Tags        []string
	From        *time.Time // lastReceiveTime >= From
	To          *time.Time // lastReceiveTime < To
	Limit       int64
}

// AlertCounts is the point-in-time aggregate shape the dashboards poll.
type AlertCounts struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"statusCounts"`
	BySeverity map[string]int64 `json:"severityCounts"`
}
