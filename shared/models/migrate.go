package models

import "gorm.io/gorm"

// MigrateAll creates or updates the schema for every persisted entity.
// Order matters for foreign keys: consultancies before users, users
// before students, students before transactions.
func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Consultancy{},
		&User{},
		&Student{},
		&Transaction{},
		&ChangeLog{},
		&Announcement{},
	)
}
