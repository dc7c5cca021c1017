package application

import (
	"github.com/voicewms/dispatch-service/internal/domain"
	"github.com/voicewms/dispatch-service/internal/layout"
)

// ToTaskDTO converts a task aggregate to its API representation.
func ToTaskDTO(task *domain.WorkTask) *TaskDTO {
	return &TaskDTO{
		TaskID:            task.TaskID,
		OrderRef:          task.OrderRef,
		RequiredRole:      task.RequiredRole.String(),
		ItemCode:          task.ItemCode,
		ItemDescription:   task.ItemDescription,
		LocationCode:      task.LocationCode,
		QuantityRequested: task.QuantityRequested,
		QuantityPicked:    task.QuantityPicked,
		Priority:          task.Priority,
		EstimatedSeconds:  task.EstimatedSeconds,
		ActualSeconds:     task.ActualSeconds,
		Status:            string(task.Status),
		AssignedPIN:       task.AssignedPIN,
		Notes:             task.Notes,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
		AssignedAt:        task.AssignedAt,
		StartedAt:         task.StartedAt,
		CompletedAt:       task.CompletedAt,
	}
}

// ToTaskDTOs converts a slice of task aggregates.
func ToTaskDTOs(tasks []*domain.WorkTask) []*TaskDTO {
	dtos := make([]*TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToHistoryEntryDTO converts an audit trail entry.
func ToHistoryEntryDTO(entry *domain.HistoryEntry) *HistoryEntryDTO {
	return &HistoryEntryDTO{
		EntryID:        entry.EntryID,
		TaskID:         entry.TaskID,
		WorkerPIN:      entry.WorkerPIN,
		Action:         string(entry.Action),
		OldStatus:      string(entry.OldStatus),
		NewStatus:      string(entry.NewStatus),
		QuantityBefore: entry.QuantityBefore,
		QuantityAfter:  entry.QuantityAfter,
		Notes:          entry.Notes,
		CreatedAt:      entry.CreatedAt,
	}
}

// ToHistoryEntryDTOs converts a slice of audit trail entries.
func ToHistoryEntryDTOs(entries []*domain.HistoryEntry) []*HistoryEntryDTO {
	dtos := make([]*HistoryEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = ToHistoryEntryDTO(entry)
	}
	return dtos
}

// ToWorkerDTO converts a worker record.
func ToWorkerDTO(worker *domain.Worker) *WorkerDTO {
	return &WorkerDTO{
		PIN:       worker.PIN,
		Name:      worker.Name,
		Role:      worker.Role.String(),
		Active:    worker.Active,
		Equipment: worker.Equipment,
	}
}

// ToAddressDTO converts a storage address, optionally with its spoken
// form for voice terminals.
func ToAddressDTO(addr *layout.Address, spokenForm string) *AddressDTO {
	return &AddressDTO{
		Code:             addr.Code,
		Section:          addr.Section,
		Aisle:            addr.Aisle,
		Bay:              addr.Bay,
		Level:            addr.Level,
		Subsection:       addr.Subsection,
		Ordinal:          addr.Ordinal,
		CheckDigit:       addr.CheckDigit,
		LocationType:     addr.LocationType,
		Equipment:        addr.Equipment,
		Capacity:         addr.Capacity,
		CurrentOccupancy: addr.CurrentOccupancy,
		IsActive:         addr.IsActive,
		SpokenForm:       spokenForm,
	}
}

func toLayout(req *LayoutRequest) *layout.Layout {
	l := &layout.Layout{
		Name:            req.Name,
		CheckDigitSpace: req.CheckDigitSpace,
		CheckDigitKey:   req.CheckDigitKey,
	}
	for _, s := range req.Sections {
		section := layout.Section{Code: s.Code, Name: s.Name}
		for _, a := range s.Aisles {
			section.Aisles = append(section.Aisles, layout.Aisle{
				Code:         a.Code,
				Complex:      a.Complex,
				BayStart:     a.BayStart,
				BayEnd:       a.BayEnd,
				Levels:       a.Levels,
				Subsections:  a.Subsections,
				LocationType: a.LocationType,
				Capacity:     a.Capacity,
				Equipment:    a.Equipment,
			})
		}
		l.Sections = append(l.Sections, section)
	}
	return l
}
