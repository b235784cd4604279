package dao

import (
	"errors"

	"ppt-expansion-backend/model"

	"gorm.io/gorm"
)

func CreateUser(user *model.User) error {
	if err := DB.Create(user).Error; err != nil {
		return persistErr(err)
	}
	return nil
}

func GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := DB.Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr(err)
	}
	return &user, nil
}
