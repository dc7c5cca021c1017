package application

import "time"

// CreateTaskRequest is the payload for creating a work task.
type CreateTaskRequest struct {
	OrderRef         string `json:"orderRef" binding:"omitempty,max=64"`
	RequiredRole     string `json:"requiredRole" binding:"required,role_tag"`
	ItemCode         string `json:"itemCode" binding:"required,item_code"`
	ItemDescription  string `json:"itemDescription" binding:"omitempty,max=256"`
	LocationCode     string `json:"locationCode" binding:"required,location_code"`
	Quantity         int    `json:"quantity" binding:"required,gte=1"`
	Priority         int    `json:"priority" binding:"omitempty,task_priority"`
	EstimatedSeconds int    `json:"estimatedSeconds" binding:"omitempty,gte=0"`
	Notes            string `json:"notes" binding:"omitempty,max=512"`
}

// ClaimTaskRequest claims a specific task for a worker.
type ClaimTaskRequest struct {
	TaskID string `json:"taskId" binding:"required"`
	PIN    int    `json:"pin" binding:"required,worker_pin"`
}

// StartTaskRequest moves an assigned task into picking.
type StartTaskRequest struct {
	TaskID string `json:"taskId" binding:"required"`
	PIN    int    `json:"pin" binding:"required,worker_pin"`
}

// CompleteTaskRequest finishes a picking task with the counted quantity.
type CompleteTaskRequest struct {
	TaskID         string `json:"taskId" binding:"required"`
	PIN            int    `json:"pin" binding:"required,worker_pin"`
	QuantityPicked int    `json:"quantityPicked" binding:"gte=0"`
	Notes          string `json:"notes" binding:"omitempty,max=512"`
}

// RegisterWorkerRequest enrolls or updates a worker in the directory.
type RegisterWorkerRequest struct {
	PIN       int    `json:"pin" binding:"required,worker_pin"`
	Name      string `json:"name" binding:"required,max=128"`
	Role      string `json:"role" binding:"required,role_tag"`
	Equipment string `json:"equipment" binding:"omitempty,oneof=manual forklift"`
	Active    *bool  `json:"active" binding:"omitempty"`
}

// TaskListQuery narrows task listings from query parameters.
type TaskListQuery struct {
	Status   string `form:"status" binding:"omitempty"`
	Role     string `form:"role" binding:"omitempty,role_tag"`
	OrderRef string `form:"orderRef" binding:"omitempty,max=64"`
	PIN      int    `form:"pin" binding:"omitempty,worker_pin"`
	Limit    int64  `form:"limit" binding:"omitempty,gte=1,lte=500"`
	Offset   int64  `form:"offset" binding:"omitempty,gte=0"`
}

// TaskDTO is the API representation of a work task.
type TaskDTO struct {
	TaskID            string     `json:"taskId"`
	OrderRef          string     `json:"orderRef,omitempty"`
	RequiredRole      string     `json:"requiredRole"`
	ItemCode          string     `json:"itemCode"`
	ItemDescription   string     `json:"itemDescription,omitempty"`
	LocationCode      string     `json:"locationCode"`
	QuantityRequested int        `json:"quantityRequested"`
	QuantityPicked    int        `json:"quantityPicked"`
	Priority          int        `json:"priority"`
	EstimatedSeconds  int        `json:"estimatedSeconds,omitempty"`
	ActualSeconds     int        `json:"actualSeconds,omitempty"`
	Status            string     `json:"status"`
	AssignedPIN       int        `json:"assignedPin,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	AssignedAt        *time.Time `json:"assignedAt,omitempty"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// HistoryEntryDTO is one audit trail record for a task.
type HistoryEntryDTO struct {
	EntryID        string    `json:"entryId"`
	TaskID         string    `json:"taskId"`
	WorkerPIN      int       `json:"workerPin,omitempty"`
	Action         string    `json:"action"`
	OldStatus      string    `json:"oldStatus,omitempty"`
	NewStatus      string    `json:"newStatus"`
	QuantityBefore int       `json:"quantityBefore"`
	QuantityAfter  int       `json:"quantityAfter"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// WorkerDTO is the API representation of a worker.
type WorkerDTO struct {
	PIN       int    `json:"pin"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	Equipment string `json:"equipment,omitempty"`
}

// StatsDTO summarizes the task queue by lifecycle state.
type StatsDTO struct {
	ByStatus  map[string]int64 `json:"byStatus"`
	Open      int64            `json:"open"`
	Terminal  int64            `json:"terminal"`
	Total     int64            `json:"total"`
	Timestamp time.Time        `json:"timestamp"`
}

// GenerateLayoutRequest builds warehouse addresses from a named template
// or an inline layout definition. Exactly one of Template or Layout must
// be supplied.
type GenerateLayoutRequest struct {
	Template string         `json:"template" binding:"omitempty,oneof=small medium large"`
	Layout   *LayoutRequest `json:"layout" binding:"omitempty"`
}

// LayoutRequest is an inline layout definition.
type LayoutRequest struct {
	Name            string           `json:"name" binding:"required,max=64"`
	CheckDigitSpace int              `json:"checkDigitSpace" binding:"omitempty,gte=2"`
	CheckDigitKey   int              `json:"checkDigitKey" binding:"omitempty,gte=1"`
	Sections        []SectionRequest `json:"sections" binding:"required,min=1,dive"`
}

// SectionRequest defines one section of an inline layout.
type SectionRequest struct {
	Code   string         `json:"code" binding:"required,len=1"`
	Name   string         `json:"name" binding:"omitempty,max=64"`
	Aisles []AisleRequest `json:"aisles" binding:"required,min=1,dive"`
}

// AisleRequest defines one aisle of an inline layout section.
type AisleRequest struct {
	Code         string   `json:"code" binding:"required,min=1,max=3"`
	Complex      bool     `json:"complex"`
	BayStart     int      `json:"bayStart" binding:"omitempty,gte=1,lte=999"`
	BayEnd       int      `json:"bayEnd" binding:"required,gte=1,lte=999"`
	Levels       []string `json:"levels" binding:"omitempty"`
	Subsections  []string `json:"subsections" binding:"omitempty"`
	LocationType string   `json:"locationType" binding:"omitempty,oneof=pick reserve dock stage"`
	Equipment    string   `json:"equipment" binding:"omitempty,oneof=manual forklift"`
	Capacity     int      `json:"capacity" binding:"omitempty,gte=1"`
}

// GenerateLayoutResponse reports the outcome of layout generation.
type GenerateLayoutResponse struct {
	Layout      string         `json:"layout"`
	Sections    int            `json:"sections"`
	Addresses   int            `json:"addresses"`
	BySection   map[string]int `json:"bySection"`
	ByType      map[string]int `json:"byType"`
	ByEquipment map[string]int `json:"byEquipment"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// AddressDTO is the API representation of a storage address.
type AddressDTO struct {
	Code             string `json:"code"`
	Section          string `json:"section"`
	Aisle            string `json:"aisle"`
	Bay              int    `json:"bay"`
	Level            string `json:"level,omitempty"`
	Subsection       string `json:"subsection,omitempty"`
	Ordinal          int    `json:"ordinal"`
	CheckDigit       int    `json:"checkDigit"`
	LocationType     string `json:"locationType"`
	Equipment        string `json:"equipment"`
	Capacity         int    `json:"capacity"`
	CurrentOccupancy int    `json:"currentOccupancy"`
	IsActive         bool   `json:"isActive"`
	SpokenForm       string `json:"spokenForm,omitempty"`
}

// AddressQuery narrows address searches.
type AddressQuery struct {
	Search       string `form:"search" binding:"omitempty,max=16"`
	Section      string `form:"section" binding:"omitempty,alpha,max=1"`
	Aisle        string `form:"aisle" binding:"omitempty,alpha,max=3"`
	LocationType string `form:"type" binding:"omitempty,oneof=pick reserve dock stage"`
	Equipment    string `form:"equipment" binding:"omitempty,oneof=manual forklift"`
	Limit        int64  `form:"limit" binding:"omitempty,gte=1,lte=1000"`
	Offset       int64  `form:"offset" binding:"omitempty,gte=0"`
}
