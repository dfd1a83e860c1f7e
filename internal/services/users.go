package services

import (
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/internal/utils"
	"gorm.io/gorm"
)

// UserDirectory is the identity capability the session core depends on:
// account lookup, credential verification and lifecycle. The auth service
// only sees this interface.
type UserDirectory interface {
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Create(user *models.User, password, roleName string) error
	Update(user *models.User) error
	Delete(user *models.User) error
	VerifyCredentials(user *models.User, password string) bool
	SetPassword(user *models.User, password string) error
}

// gormUserDirectory backs the directory with the application database.
type gormUserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) UserDirectory {
	return &gormUserDirectory{db: db}
}

func (d *gormUserDirectory) FindByID(id string) (*models.User, error) {
	var user models.User
	err := d.db.Preload("Roles").Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (d *gormUserDirectory) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := d.db.Preload("Roles").Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create persists a new account with the given role attached. The role must
// already be seeded.
func (d *gormUserDirectory) Create(user *models.User, password, roleName string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	return d.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return err
		}
		user.Roles = []models.Role{role}
		return tx.Create(user).Error
	})
}

func (d *gormUserDirectory) Update(user *models.User) error {
	now := time.Now()
	user.UpdatedAt = &now
	return d.db.Save(user).Error
}

func (d *gormUserDirectory) Delete(user *models.User) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

func (d *gormUserDirectory) VerifyCredentials(user *models.User, password string) bool {
	return utils.CheckPassword(password, user.PasswordHash)
}

func (d *gormUserDirectory) SetPassword(user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return d.Update(user)
}
