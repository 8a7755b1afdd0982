package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Worker represents a field-service pro who can be assigned to requests.
//
// Coverage and skills are stored as comma-separated lists; a worker with no
// coverage entries serves everywhere, and one with no skill tags is treated
// as a generalist by the matching engine.
type Worker struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(200);not null"`
	Phone       string `json:"phone" gorm:"type:varchar(30)"`
	Email       string `json:"email" gorm:"type:varchar(200)"`
	CoverageZip string `json:"coverage_zip" gorm:"type:varchar(200)"` // comma-separated postal codes
	City        string `json:"city" gorm:"type:varchar(100)"`
	Skills      string `json:"skills" gorm:"type:text"` // comma-separated free-text tags

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (Worker) TableName() string {
	return "workers"
}

// CoverageZips returns the declared postal codes, trimmed, empty entries dropped.
func (w *Worker) CoverageZips() []string {
	return splitList(w.CoverageZip)
}

// SkillTags returns the declared skill tags, trimmed, empty entries dropped.
func (w *Worker) SkillTags() []string {
	return splitList(w.Skills)
}

// HasCoverage reports whether the worker declared any coverage constraint.
func (w *Worker) HasCoverage() bool {
	return len(w.CoverageZips()) > 0 || strings.TrimSpace(w.City) != ""
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// WorkerAssignment records a worker's acceptance of an assigned request.
type WorkerAssignment struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	WorkerID         uint       `json:"worker_id" gorm:"not null;index"`
	ServiceRequestID uint       `json:"service_request_id" gorm:"not null;index"`
	Accepted         bool       `json:"accepted" gorm:"default:false"`
	AcceptedAt       *time.Time `json:"accepted_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Worker         Worker         `json:"worker,omitempty" gorm:"foreignKey:WorkerID"`
	ServiceRequest ServiceRequest `json:"service_request,omitempty" gorm:"foreignKey:ServiceRequestID"`
}

func (WorkerAssignment) TableName() string {
	return "worker_assignments"
}
