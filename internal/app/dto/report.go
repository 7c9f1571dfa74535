package dto

import "time"

type ReportView struct {
	Key         string    `json:"key"`
	Format      string    `json:"format"`
	Rows        int       `json:"rows"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
