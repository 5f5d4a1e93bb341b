package lessons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Repository manages lesson persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lesson *models.Lesson) error
	CreateBatch(ctx context.Context, lessons []models.Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Lesson, error)
	ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Lesson, error)
	ListFutureScheduledInGroup(ctx context.Context, groupID uuid.UUID, after time.Time) ([]models.Lesson, error)
	ListScheduledEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Lesson, error)
	Update(ctx context.Context, lesson *models.Lesson) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lesson repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *repository) CreateBatch(ctx context.Context, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(lessons, 100).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("start_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := r.db.WithContext(ctx).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListOverlapping fetches non-cancelled lessons whose [start_time, end_time)
// range intersects the candidate interval.
func (r *repository) ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := r.db.WithContext(ctx).
		Where("status <> ?", enums.LessonStatusCancelled).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("start_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListFutureScheduledInGroup(ctx context.Context, groupID uuid.UUID, after time.Time) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := r.db.WithContext(ctx).
		Where("recurring_group_id = ?", groupID).
		Where("status = ?", enums.LessonStatusScheduled).
		Where("start_time > ?", after).
		Order("start_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListScheduledEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Lesson, error) {
	var out []models.Lesson
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.LessonStatusScheduled).
		Where("end_time < ?", cutoff).
		Order("end_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Save(lesson).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("id = ?", id).
		Update("status", status).Error
}
