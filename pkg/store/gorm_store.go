package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ainastudio/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 46247001

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BusinessModel{}, &TemplateModel{}, &SubscriptionModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "role", "status", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateBusiness inserts a new profile. The owner_id unique index turns a
// second insert for the same owner into ErrBusinessExists.
func (s *GormStore) CreateBusiness(b domain.Business) error {
	model, err := businessToModel(b)
	if err != nil {
		return fmt.Errorf("encode business: %w", err)
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrBusinessExists
		}
		return err
	}
	return nil
}

// GetBusinessByOwner returns the owner's profile.
func (s *GormStore) GetBusinessByOwner(ownerID string) (domain.Business, bool, error) {
	var model BusinessModel
	if err := s.db.Where("owner_id = ?", ownerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Business{}, false, nil
		}
		return domain.Business{}, false, err
	}
	return businessFromModel(model), true, nil
}

// UpdateBusiness rewrites the mutable columns of a profile. Name, type and
// owner are left untouched.
func (s *GormStore) UpdateBusiness(b domain.Business) error {
	model, err := businessToModel(b)
	if err != nil {
		return fmt.Errorf("encode business: %w", err)
	}
	res := s.db.Model(&BusinessModel{}).
		Where("id = ?", b.ID).
		Select("address", "logo_url", "inspiration_photos", "keywords", "tone", "platforms", "preferred_style", "updated_at").
		Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBusiness removes a profile.
func (s *GormStore) DeleteBusiness(id string) error {
	res := s.db.Delete(&BusinessModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTemplate inserts a template.
func (s *GormStore) CreateTemplate(t domain.Template) error {
	model := templateToModel(t)
	return s.db.Create(&model).Error
}

// GetTemplate returns a template by ID.
func (s *GormStore) GetTemplate(id string) (domain.Template, bool, error) {
	var model TemplateModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Template{}, false, nil
		}
		return domain.Template{}, false, err
	}
	return templateFromModel(model), true, nil
}

// ListTemplatesByOwner returns the owner's templates, newest first.
func (s *GormStore) ListTemplatesByOwner(ownerID string, filter TemplateFilter) ([]domain.Template, error) {
	tx := s.db.Where("owner_id = ?", ownerID)
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.FavoriteOnly {
		tx = tx.Where("favorite = ?", true)
	}
	var models []TemplateModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Template, 0, len(models))
	for _, m := range models {
		res = append(res, templateFromModel(m))
	}
	return res, nil
}

// UpdateTemplate rewrites the editable columns of a template.
func (s *GormStore) UpdateTemplate(t domain.Template) error {
	model := templateToModel(t)
	res := s.db.Model(&TemplateModel{}).
		Where("id = ?", t.ID).
		Select("name", "category", "image_url", "text", "description", "platform", "tone", "style", "favorite").
		Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTemplateUse bumps use_count atomically.
func (s *GormStore) IncrementTemplateUse(id string) error {
	res := s.db.Model(&TemplateModel{}).Where("id = ?", id).
		UpdateColumn("use_count", gorm.Expr("use_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template.
func (s *GormStore) DeleteTemplate(id string) error {
	res := s.db.Delete(&TemplateModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSubscription inserts or updates a subscription by ID.
func (s *GormStore) SaveSubscription(sub domain.Subscription) error {
	model := subscriptionToModel(sub)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "plan", "current_period_start", "current_period_end", "provider_ref", "test_mode", "updated_at",
		}),
	}).Create(&model).Error
}

// GetSubscriptionByUser returns the user's most recent subscription.
func (s *GormStore) GetSubscriptionByUser(userID string) (domain.Subscription, bool, error) {
	var model SubscriptionModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Subscription{}, false, nil
		}
		return domain.Subscription{}, false, err
	}
	return subscriptionFromModel(model), true, nil
}

// GetSubscriptionByProviderRef finds a subscription by payment provider id.
func (s *GormStore) GetSubscriptionByProviderRef(ref string) (domain.Subscription, bool, error) {
	var model SubscriptionModel
	if err := s.db.Where("provider_ref = ?", ref).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Subscription{}, false, nil
		}
		return domain.Subscription{}, false, err
	}
	return subscriptionFromModel(model), true, nil
}
