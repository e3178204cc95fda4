package repositories

import (
	"errors"

	"smartdalali_backend/internal/models"

	"gorm.io/gorm"
)

var ErrPropertyNotFound = errors.New("property not found")

type PropertyRepository interface {
	FindByID(id string) (*models.Property, error)
}

type PropertyRepositoryImpl struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &PropertyRepositoryImpl{db: db}
}

func (r *PropertyRepositoryImpl) FindByID(id string) (*models.Property, error) {
	var property models.Property
	if err := r.db.Preload("Owner").First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &property, nil
}
