package directory

import (
	"fmt"

	"github.com/opspulse/internal/models"
	"gorm.io/gorm"
)

// Directory resolves notification recipients from the user table. Only
// active users are returned; deactivated accounts never receive anything.
type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.Where("is_active = ?", true).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to find user %d: %v", id, err)
	}
	return &user, nil
}

func (d *Directory) ListByRole(role models.Role) ([]models.User, error) {
	var users []models.User
	if err := d.db.Where("role = ? AND is_active = ?", role, true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by role %s: %v", role, err)
	}
	return users, nil
}

func (d *Directory) ListByDepartment(department string) ([]models.User, error) {
	var users []models.User
	if err := d.db.Where("department = ? AND is_active = ?", department, true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by department %s: %v", department, err)
	}
	return users, nil
}
