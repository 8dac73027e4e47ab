package repository

import (
	"beautyhub-backend/models"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddPaidPosts upserts the employee's counters, adding count to total_paid.
func (s *Store) AddPaidPosts(ctx context.Context, employeeID uuid.UUID, count int) error {
	limit := models.EmployeePostLimit{EmployeeID: employeeID, TotalPaid: count}
	return translate(s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_paid": gorm.Expr("employee_post_limits.total_paid + ?", count),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&limit).Error)
}

// GetPostLimit returns zero counters for employees without a row.
func (s *Store) GetPostLimit(ctx context.Context, employeeID uuid.UUID) (*models.EmployeePostLimit, error) {
	limit, err := first[models.EmployeePostLimit](s.conn(ctx), "employee_id = ?", employeeID)
	if errors.Is(err, ErrNotFound) {
		return &models.EmployeePostLimit{EmployeeID: employeeID}, nil
	}
	return limit, err
}

func (s *Store) ConsumePost(ctx context.Context, employeeID uuid.UUID, freeQuota int) (bool, error) {
	seed := models.EmployeePostLimit{EmployeeID: employeeID}
	if err := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, translate(err)
	}
	res := s.conn(ctx).Model(&models.EmployeePostLimit{}).
		Where("employee_id = ? AND free_used < ? + total_paid", employeeID, freeQuota).
		Updates(map[string]interface{}{
			"free_used":  gorm.Expr("free_used + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListActivePremiums returns the user's active rows, newest first. Inside a
// transaction the rows are locked.
func (s *Store) ListActivePremiums(ctx context.Context, userID uuid.UUID) ([]models.UserPremium, error) {
	q := s.conn(ctx)
	if inTx(ctx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out []models.UserPremium
	err := q.Where("user_id = ? AND is_active = ?", userID, true).
		Order("end_date DESC, created_at DESC").
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreatePremium(ctx context.Context, p *models.UserPremium) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *Store) SavePremium(ctx context.Context, p *models.UserPremium) error {
	return translate(s.conn(ctx).Save(p).Error)
}

func (s *Store) DeactivatePremiums(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(s.conn(ctx).Model(&models.UserPremium{}).
		Where("id IN ?", ids).
		Update("is_active", false).Error)
}

func (s *Store) ListUsersWithDuplicatePremiums(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.conn(ctx).Model(&models.UserPremium{}).
		Where("is_active = ?", true).
		Group("user_id").
		Having("COUNT(*) > 1").
		Pluck("user_id", &ids).Error
	return ids, translate(err)
}

func (s *Store) ListExpiredPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	var out []models.UserPremium
	err := s.conn(ctx).Where("is_active = ? AND end_date <= ?", true, now).Find(&out).Error
	return out, translate(err)
}

// ListLapsedAutoPayPremiums returns, for every auto-pay user without an
// active premium, the user's latest premium when it ended by now.
func (s *Store) ListLapsedAutoPayPremiums(ctx context.Context, now time.Time) ([]models.UserPremium, error) {
	autoPay := s.conn(ctx).Model(&models.User{}).Select("id").Where("auto_pay = ?", true)
	active := s.conn(ctx).Model(&models.UserPremium{}).Select("user_id").Where("is_active = ?", true)

	var rows []models.UserPremium
	err := s.conn(ctx).
		Where("user_id IN (?) AND user_id NOT IN (?)", autoPay, active).
		Order("user_id, end_date DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	out := make([]models.UserPremium, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, p := range rows {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		if !p.EndDate.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListActiveTops(ctx context.Context, salonID uuid.UUID) ([]models.SalonTopHistory, error) {
	var out []models.SalonTopHistory
	err := s.conn(ctx).
		Where("salon_id = ? AND is_active = ?", salonID, true).
		Order("start_date DESC").
		Find(&out).Error
	return out, translate(err)
}

// CloseActiveTops ends every active promotion of the salon at the given time.
func (s *Store) CloseActiveTops(ctx context.Context, salonID uuid.UUID, at time.Time) error {
	return translate(s.conn(ctx).Model(&models.SalonTopHistory{}).
		Where("salon_id = ? AND is_active = ?", salonID, true).
		Updates(map[string]interface{}{"is_active": false, "end_date": at}).Error)
}

func (s *Store) CreateTopHistory(ctx context.Context, h *models.SalonTopHistory) error {
	return translate(s.conn(ctx).Create(h).Error)
}

func (s *Store) ListExpiredTops(ctx context.Context, now time.Time) ([]models.SalonTopHistory, error) {
	var out []models.SalonTopHistory
	err := s.conn(ctx).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) DeactivateTop(ctx context.Context, id uuid.UUID) error {
	return translate(s.conn(ctx).Model(&models.SalonTopHistory{}).
		Where("id = ?", id).
		Update("is_active", false).Error)
}
