package services

import (
	"beautyhub-backend/clients/click"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for repository.Store. Uniqueness rules
// of the real schema are enforced under the mutex; transactions pass through.
type fakeStore struct {
	mu sync.Mutex

	users         map[uuid.UUID]*models.User
	salons        map[uuid.UUID]*models.Salon
	employees     map[uuid.UUID]*models.Employee
	schedules     map[uuid.UUID]*models.Schedule
	appointments  map[uuid.UUID]*models.Appointment
	busy          map[uuid.UUID]*models.BusySlot
	conversations map[uuid.UUID]*models.Conversation
	messages      []models.Message
	notifications []models.Notification
	subs          map[uuid.UUID]bool
	smsLogs       []models.SmsLog
	payments      map[uuid.UUID]*models.Payment
	cards         map[uuid.UUID]*models.PaymentCard
	postLimits    map[uuid.UUID]*models.EmployeePostLimit
	premiums      map[uuid.UUID]*models.UserPremium
	tops          map[uuid.UUID]*models.SalonTopHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[uuid.UUID]*models.User{},
		salons:        map[uuid.UUID]*models.Salon{},
		employees:     map[uuid.UUID]*models.Employee{},
		schedules:     map[uuid.UUID]*models.Schedule{},
		appointments:  map[uuid.UUID]*models.Appointment{},
		busy:          map[uuid.UUID]*models.BusySlot{},
		conversations: map[uuid.UUID]*models.Conversation{},
		subs:          map[uuid.UUID]bool{},
		payments:      map[uuid.UUID]*models.Payment{},
		cards:         map[uuid.UUID]*models.PaymentCard{},
		postLimits:    map[uuid.UUID]*models.EmployeePostLimit{},
		premiums:      map[uuid.UUID]*models.UserPremium{},
		tops:          map[uuid.UUID]*models.SalonTopHistory{},
	}
}

func (f *fakeStore) addUser(phone string) *models.User {
	u := &models.User{ID: uuid.New(), Phone: phone, Name: "Test User", IsActive: true}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addSalon() *models.Salon {
	s := &models.Salon{ID: uuid.New(), Name: "Salon", IsActive: true}
	f.salons[s.ID] = s
	return s
}

func (f *fakeStore) addEmployee(salonID uuid.UUID) *models.Employee {
	e := &models.Employee{ID: uuid.New(), SalonID: &salonID, Name: "Employee", Phone: "+998901112233", IsActive: true}
	f.employees[e.ID] = e
	return e
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// directory

func (f *fakeStore) GetSalon(ctx context.Context, id uuid.UUID) (*models.Salon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.salons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListActiveSalons(ctx context.Context) ([]models.Salon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Salon
	for _, s := range f.salons {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ListSalonEmployees(ctx context.Context, salonID uuid.UUID) ([]models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Employee
	for _, e := range f.employees {
		if e.IsActive && e.BelongsTo(salonID) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) SetUserAutoPay(ctx context.Context, id uuid.UUID, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AutoPay = enabled
	return nil
}

// schedules

func (f *fakeStore) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.schedules {
		if other.SalonID == s.SalonID && other.Date == s.Date && other.Name == s.Name &&
			sameStart(s.StartTime, other.StartTime) {
			return repository.ErrDuplicate
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

// sameStart mirrors idx_schedule_slot plus the partial idx_schedule_open.
func sameStart(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeStore) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListSchedules(ctx context.Context, flt repository.ScheduleFilter) ([]models.Schedule, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Schedule
	for _, s := range f.schedules {
		switch {
		case flt.SalonID != nil && s.SalonID != *flt.SalonID:
		case flt.EmployeeID != nil && !s.Includes(*flt.EmployeeID):
		case flt.Date != "" && s.Date != flt.Date:
		case flt.DateFrom != "" && s.Date < flt.DateFrom:
		case flt.DateTo != "" && s.Date > flt.DateTo:
		case flt.ActiveOnly && !s.IsActive:
		default:
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Name < out[j].Name
	})
	total := int64(len(out))
	if flt.Offset > 0 {
		if flt.Offset >= len(out) {
			return []models.Schedule{}, total, nil
		}
		out = out[flt.Offset:]
	}
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, total, nil
}

func (f *fakeStore) DeactivateSchedule(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsActive = false
	return nil
}

// appointments

func (f *fakeStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.appointments {
		if other.ApplicationNumber == a.ApplicationNumber {
			return repository.ErrApplicationNumberConflict
		}
		if !other.IsCancelled && other.EmployeeID == a.EmployeeID && other.Date == a.Date && other.Time == a.Time {
			return repository.ErrSlotConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ActiveAppointmentExists(ctx context.Context, employeeID uuid.UUID, date, clock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if !a.IsCancelled && a.EmployeeID == employeeID && a.Date == date && a.Time == clock {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListActiveAppointments(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[uuid.UUID]bool{}
	for _, id := range employeeIDs {
		ids[id] = true
	}
	var out []models.Appointment
	for _, a := range f.appointments {
		if !a.IsCancelled && ids[a.EmployeeID] && a.Date == date {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) sortedAppointments(keep func(*models.Appointment) bool) []models.Appointment {
	var out []models.Appointment
	for _, a := range f.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListAppointmentsByPhone(ctx context.Context, phone string, limit int) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sortedAppointments(func(a *models.Appointment) bool { return a.Phone == phone && !a.IsCancelled })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedAppointments(func(a *models.Appointment) bool { return a.UserID != nil && *a.UserID == userID }), nil
}

func (f *fakeStore) ListAppointments(ctx context.Context, flt repository.AppointmentFilter) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedAppointments(func(a *models.Appointment) bool {
		switch {
		case flt.SalonID != nil && a.SalonID != *flt.SalonID:
		case flt.EmployeeID != nil && a.EmployeeID != *flt.EmployeeID:
		case flt.Date != "" && a.Date != flt.Date:
		case flt.Status != "" && string(a.Status) != flt.Status:
		default:
			return true
		}
		return false
	}), nil
}

func (f *fakeStore) UpdateAppointmentStatus(ctx context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.appointments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = a.Status
	stored.IsConfirmed = a.IsConfirmed
	stored.IsCompleted = a.IsCompleted
	stored.IsCancelled = a.IsCancelled
	return nil
}

// busy slots

func (f *fakeStore) CreateBusySlot(ctx context.Context, b *models.BusySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	f.busy[b.ID] = &cp
	return nil
}

func (f *fakeStore) GetBusySlot(ctx context.Context, id uuid.UUID) (*models.BusySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.busy[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) DeleteBusySlot(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.busy[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.busy, id)
	return nil
}

func (f *fakeStore) ListBusySlots(ctx context.Context, employeeIDs []uuid.UUID, date string) ([]models.BusySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[uuid.UUID]bool{}
	for _, id := range employeeIDs {
		ids[id] = true
	}
	var out []models.BusySlot
	for _, b := range f.busy {
		if ids[b.EmployeeID] && b.Date == date {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEmployeeBusySlots(ctx context.Context, employeeID uuid.UUID, fromDate string) ([]models.BusySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BusySlot
	for _, b := range f.busy {
		if b.EmployeeID == employeeID && b.Date >= fromDate {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].StartTime < out[j].Date+out[j].StartTime })
	return out, nil
}

// chat

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeStore) FindConversation(ctx context.Context, userID uuid.UUID, employeeID, salonID *uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.UserID == userID && sameRef(c.EmployeeID, employeeID) && sameRef(c.SalonID, salonID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.conversations {
		if other.UserID == c.UserID && sameRef(other.EmployeeID, c.EmployeeID) && sameRef(other.SalonID, c.SalonID) {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.conversations[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListConversations(ctx context.Context, participantID uuid.UUID, role string) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Conversation
	for _, c := range f.conversations {
		if c.Participant(participantID, role) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) NextMessageSeq(ctx context.Context, conversationID uuid.UUID, preview string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[conversationID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	c.MessageCount++
	c.LastMessage = &preview
	c.LastMessageTime = &at
	return c.MessageCount, nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.messages {
		if other.ConversationID == m.ConversationID && other.Seq == m.Seq {
			return repository.ErrDuplicate
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq > all[j].Seq })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Message{}, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeStore) MarkMessagesRead(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.messages {
		m := &f.messages[i]
		if m.ConversationID == conversationID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountUnread(ctx context.Context, conversationID, receiverID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

// notifications

func (f *fakeStore) IsSubscribed(ctx context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[userID], nil
}

func (f *fakeStore) Subscribe(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[userID] = true
	return nil
}

func (f *fakeStore) Unsubscribe(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, userID)
	return nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		if f.notifications[i].UserID == userID {
			out = append(out, f.notifications[i])
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []models.Notification{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) CreateSmsLog(ctx context.Context, l *models.SmsLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.smsLogs = append(f.smsLogs, *l)
	return nil
}

// payments

func (f *fakeStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return []models.Payment{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeStore) UpdatePayment(ctx context.Context, p *models.Payment, columns ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, col := range columns {
		switch col {
		case "status":
			stored.Status = p.Status
		case "error_note":
			stored.ErrorNote = p.ErrorNote
		case "invoice_id":
			stored.InvoiceID = p.InvoiceID
		case "card_id":
			stored.CardID = p.CardID
		case "provider_payment_id":
			stored.ProviderPaymentID = p.ProviderPaymentID
		case "prepare_id":
			stored.PrepareID = p.PrepareID
		default:
			return fmt.Errorf("fake store: unknown payment column %q", col)
		}
	}
	return nil
}

func (f *fakeStore) CompletePayment(ctx context.Context, id uuid.UUID, providerTxnID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.payments[id]
	if !ok || stored.Status == models.PaymentCompleted {
		return false, nil
	}
	for _, other := range f.payments {
		if other.ProviderTxnID != nil && *other.ProviderTxnID == providerTxnID {
			return false, repository.ErrDuplicate
		}
	}
	stored.Status = models.PaymentCompleted
	stored.ProviderTxnID = &providerTxnID
	stored.CompletedAt = &at
	return true, nil
}

// cards

func (f *fakeStore) CreateCard(ctx context.Context, c *models.PaymentCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.cards {
		if other.ProviderCardToken == c.ProviderCardToken {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	f.cards[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetCard(ctx context.Context, id uuid.UUID) (*models.PaymentCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListCards(ctx context.Context, userID uuid.UUID) ([]models.PaymentCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentCard
	for _, c := range f.cards {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateCard(ctx context.Context, c *models.PaymentCard, columns ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.cards[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, col := range columns {
		switch col {
		case "provider_card_token":
			stored.ProviderCardToken = c.ProviderCardToken
		case "expiry":
			stored.Expiry = c.Expiry
		case "expiry_at":
			stored.ExpiryAt = c.ExpiryAt
		case "phone_number":
			stored.PhoneNumber = c.PhoneNumber
		case "is_active":
			stored.IsActive = c.IsActive
		case "is_verified":
			stored.IsVerified = c.IsVerified
		case "is_default":
			stored.IsDefault = c.IsDefault
		default:
			return fmt.Errorf("fake store: unknown card column %q", col)
		}
	}
	return nil
}

func (f *fakeStore) ClearDefaultCard(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.UserID == userID {
			c.IsDefault = false
		}
	}
	return nil
}

func (f *fakeStore) GetDefaultCard(ctx context.Context, userID uuid.UUID) (*models.PaymentCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.UserID == userID && c.IsDefault && c.Usable() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// entitlements

func (f *fakeStore) AddPaidPosts(ctx context.Context, employeeID uuid.UUID, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.postLimits[employeeID]
	if !ok {
		l = &models.EmployeePostLimit{EmployeeID: employeeID}
		f.postLimits[employeeID] = l
	}
	l.TotalPaid += count
	return nil
}

func (f *fakeStore) GetPostLimit(ctx context.Context, employeeID uuid.UUID) (*models.EmployeePostLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.postLimits[employeeID]
	if !ok {
		return &models.EmployeePostLimit{EmployeeID: employeeID}, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) ConsumePost(ctx context.Context, employeeID uuid.UUID, freeQuota int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.postLimits[employeeID]
	if !ok {
		l = &models.EmployeePostLimit{EmployeeID: employeeID}
		f.postLimits[employeeID] = l
	}
	if l.FreeUsed >= freeQuota+l.TotalPaid {
		return false, nil
	}
	l.FreeUsed++
	return true, nil
}

func (f *fakeStore) ListActivePremiums(ctx context.Context, userID uuid.UUID) ([]models.UserPremium, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserPremium
	for _, p := range f.premiums {
		if p.UserID == userID && p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (f *fakeStore) CreatePremium(ctx context.Context, p *models.UserPremium) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.premiums[p.ID] = &cp
	return nil
}

func (f *fakeStore) SavePremium(ctx context.Context, p *models.UserPremium) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.premiums[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	f.premiums[p.ID] = &cp
	return nil
}

func (f *fakeStore) DeactivatePremiums(ctx context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if p, ok := f.premiums[id]; ok {
			p.IsActive = false
		}
	}
	return nil
}

func (f *fakeStore) ListUsersWithDuplicatePremiums(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[uuid.UUID]int{}
	for _, p := range f.premiums {
		if p.IsActive {
			counts[p.UserID]++
		}
	}
	var out []uuid.UUID
	for id, n := range counts {
		if n > 1 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExpiredPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserPremium
	for _, p := range f.premiums {
		if p.IsActive && !p.EndDate.After(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLapsedAutoPayPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := map[uuid.UUID]*models.UserPremium{}
	active := map[uuid.UUID]bool{}
	for _, p := range f.premiums {
		if p.IsActive {
			active[p.UserID] = true
		}
		if cur, ok := latest[p.UserID]; !ok || p.EndDate.After(cur.EndDate) {
			latest[p.UserID] = p
		}
	}
	var out []models.UserPremium
	for userID, p := range latest {
		u, ok := f.users[userID]
		if !ok || !u.AutoPay || active[userID] || p.EndDate.After(now) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) LatestPaymentFor(ctx context.Context, prefix string, since time.Time) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.Payment
	for _, p := range f.payments {
		if !strings.HasPrefix(p.PaymentFor, prefix) || !p.CreatedAt.After(since) {
			continue
		}
		if last == nil || p.CreatedAt.After(last.CreatedAt) {
			last = p
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

func (f *fakeStore) ListActiveTops(ctx context.Context, salonID uuid.UUID) ([]models.SalonTopHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SalonTopHistory
	for _, h := range f.tops {
		if h.SalonID == salonID && h.IsActive {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeStore) CloseActiveTops(ctx context.Context, salonID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.tops {
		if h.SalonID == salonID && h.IsActive {
			h.IsActive = false
			end := at
			h.EndDate = &end
		}
	}
	return nil
}

func (f *fakeStore) CreateTopHistory(ctx context.Context, h *models.SalonTopHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	cp := *h
	f.tops[h.ID] = &cp
	return nil
}

func (f *fakeStore) ListExpiredTops(ctx context.Context, now time.Time) ([]models.SalonTopHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SalonTopHistory
	for _, h := range f.tops {
		if h.IsActive && h.EndDate != nil && !h.EndDate.After(now) {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeStore) DeactivateTop(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.tops[id]
	if !ok {
		return repository.ErrNotFound
	}
	h.IsActive = false
	return nil
}

func (f *fakeStore) SetSalonTop(ctx context.Context, salonID uuid.UUID, isTop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.salons[salonID]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsTop = isTop
	return nil
}

func (f *fakeStore) activeTopCount(salonID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.tops {
		if h.SalonID == salonID && h.IsActive {
			n++
		}
	}
	return n
}

// fakeProvider records calls to the payment provider.
type fakeProvider struct {
	mu sync.Mutex

	tokenErr   error
	verifyErr  error
	invoiceErr error
	deleteErr  error
	// payErrs are returned by successive PayWithCardToken calls.
	payErrs []error

	tokens       int
	payCalls     int
	deleted      []string
	lastInvoice  string
	lastTransID  string
	invoicePhone string
}

func (p *fakeProvider) RequestCardToken(ctx context.Context, in click.CardTokenRequest) (*click.CardTokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokenErr != nil {
		return nil, p.tokenErr
	}
	p.tokens++
	return &click.CardTokenResponse{CardToken: fmt.Sprintf("token-%d", p.tokens), PhoneNumber: "99890*****67"}, nil
}

func (p *fakeProvider) VerifyCardToken(ctx context.Context, cardToken, smsCode string) (*click.CardVerifyResponse, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return &click.CardVerifyResponse{CardNumber: "8600 **** **** 1234"}, nil
}

func (p *fakeProvider) PayWithCardToken(ctx context.Context, cardToken string, amount float64, merchantTransID string) (*click.CardPaymentResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payCalls++
	p.lastTransID = merchantTransID
	if len(p.payErrs) > 0 {
		err := p.payErrs[0]
		p.payErrs = p.payErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &click.CardPaymentResponse{PaymentID: 777, PaymentStatus: 1}, nil
}

func (p *fakeProvider) DeleteCardToken(ctx context.Context, cardToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, cardToken)
	return p.deleteErr
}

func (p *fakeProvider) CreateInvoice(ctx context.Context, amount float64, phone, merchantTransID string) (*click.InvoiceResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invoiceErr != nil {
		return nil, p.invoiceErr
	}
	p.lastInvoice = merchantTransID
	p.invoicePhone = phone
	return &click.InvoiceResponse{InvoiceID: 4242}, nil
}

func (p *fakeProvider) PaymentURL(amount float64, merchantTransID, returnURL string) string {
	return "https://pay.test/?transaction_param=" + merchantTransID + "&return_url=" + returnURL
}
