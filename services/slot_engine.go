package services

import (
	"beautyhub-backend/models"
	"beautyhub-backend/utils"
	"sort"

	"github.com/google/uuid"
)

const DefaultSlotMinutes = 30

// Slot is one bookable tick. EmptySlot is 1 when at least one eligible
// employee is free at Time.
type Slot struct {
	Time      string `json:"time"`
	EmptySlot int    `json:"empty_slot"`
}

// SlotInput is everything slot derivation needs for one salon and date.
// Appointments and BusySlots must already be restricted to that date.
type SlotInput struct {
	Schedules    []models.Schedule
	EmployeeID   *uuid.UUID
	Staff        []models.Employee
	Appointments []models.Appointment
	BusySlots    []models.BusySlot
	StepMinutes  int
}

type interval struct{ start, end int }

// DeriveSlots expands schedules into ticks from start to end inclusive and
// marks each tick free if some eligible employee has neither a live
// appointment at that tick nor a busy interval [start, end) covering it.
// Schedules without a window fall back to the employee's working hours.
func DeriveSlots(in SlotInput) []Slot {
	step := in.StepMinutes
	if step <= 0 {
		step = DefaultSlotMinutes
	}

	staff := make(map[uuid.UUID]models.Employee, len(in.Staff))
	for _, e := range in.Staff {
		staff[e.ID] = e
	}

	booked := make(map[uuid.UUID]map[int]bool)
	for _, a := range in.Appointments {
		if a.IsCancelled {
			continue
		}
		m, err := utils.ParseClock(a.Time)
		if err != nil {
			continue
		}
		if booked[a.EmployeeID] == nil {
			booked[a.EmployeeID] = make(map[int]bool)
		}
		booked[a.EmployeeID][m] = true
	}

	busy := make(map[uuid.UUID][]interval)
	for _, b := range in.BusySlots {
		start, err1 := utils.ParseClock(b.StartTime)
		end, err2 := utils.ParseClock(b.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		busy[b.EmployeeID] = append(busy[b.EmployeeID], interval{start, end})
	}

	free := func(emp uuid.UUID, tick int) bool {
		if booked[emp][tick] {
			return false
		}
		for _, iv := range busy[emp] {
			if tick >= iv.start && tick < iv.end {
				return false
			}
		}
		return true
	}

	ticks := make(map[int]bool)
	for _, s := range in.Schedules {
		if in.EmployeeID != nil && !s.Includes(*in.EmployeeID) {
			continue
		}
		for _, emp := range candidates(s, in.EmployeeID, in.Staff) {
			start, end, ok := window(s, staff, emp)
			if !ok {
				continue
			}
			for t := start; t <= end; t += step {
				ticks[t] = ticks[t] || free(emp, t)
			}
		}
	}

	out := make([]Slot, 0, len(ticks))
	for t, isFree := range ticks {
		slot := Slot{Time: utils.FormatClock(t)}
		if isFree {
			slot.EmptySlot = 1
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// candidates lists the employees who may serve s. An empty employee list
// means any staff member of the salon.
func candidates(s models.Schedule, employeeID *uuid.UUID, staff []models.Employee) []uuid.UUID {
	if employeeID != nil {
		return []uuid.UUID{*employeeID}
	}
	if len(s.EmployeeList) > 0 {
		ids := make([]uuid.UUID, 0, len(s.EmployeeList))
		for _, raw := range s.EmployeeList {
			if id, err := uuid.Parse(raw); err == nil {
				ids = append(ids, id)
			}
		}
		return ids
	}
	ids := make([]uuid.UUID, 0, len(staff))
	for _, e := range staff {
		ids = append(ids, e.ID)
	}
	return ids
}

func window(s models.Schedule, staff map[uuid.UUID]models.Employee, emp uuid.UUID) (int, int, bool) {
	startStr, endStr := s.StartTime, s.EndTime
	if startStr == nil || endStr == nil {
		e, ok := staff[emp]
		if !ok || e.WorkStartTime == nil || e.WorkEndTime == nil {
			return 0, 0, false
		}
		startStr, endStr = e.WorkStartTime, e.WorkEndTime
	}
	start, err := utils.ParseClock(*startStr)
	if err != nil {
		return 0, 0, false
	}
	end, err := utils.ParseClock(*endStr)
	if err != nil || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// OnGrid reports whether clock is a tick the schedule derives: inside the
// window, inclusive, and a whole number of steps after its start. Schedules
// without a window accept any time.
func OnGrid(s *models.Schedule, clock string, step int) (bool, error) {
	m, err := utils.ParseClock(clock)
	if err != nil {
		return false, err
	}
	if step <= 0 {
		step = DefaultSlotMinutes
	}
	if s.StartTime != nil {
		start, err := utils.ParseClock(*s.StartTime)
		if err == nil && (m < start || (m-start)%step != 0) {
			return false, nil
		}
	}
	if s.EndTime != nil {
		end, err := utils.ParseClock(*s.EndTime)
		if err == nil && m > end {
			return false, nil
		}
	}
	return true, nil
}
