package domain

import "time"

// EvidenceType tags what kind of material was collected.
type EvidenceType string

// Evidence types.
const (
	EvidenceLog        EvidenceType = "log"
	EvidenceNetwork    EvidenceType = "network_capture"
	EvidenceDiskImage  EvidenceType = "disk_image"
	EvidenceMemoryDump EvidenceType = "memory_dump"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceDocument   EvidenceType = "document"
	EvidenceOther      EvidenceType = "other"
)

// Evidence is an immutable record of collected forensic material.
// The payload hash, when present, is SHA-256 over the serialized payload.
type Evidence struct {
	ID          string       `json:"id"`
	IncidentID  string       `json:"incident_id"`
	Type        EvidenceType `json:"type"`
	Description string       `json:"description"`
	Source      string       `json:"source"`
	CollectedBy string       `json:"collected_by"`
	CollectedAt time.Time    `json:"collected_at"`
	Hash        string       `json:"hash,omitempty"`
	Location    string       `json:"location,omitempty"`
}

// CustodyEntry is one append-only link in a chain of custody.
type CustodyEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Custodian string    `json:"custodian"`
	Action    string    `json:"action"`
	Location  string    `json:"location,omitempty"`
}
