package ledger

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/hostels"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// DeleteMode selects what happens to a consultancy's students on delete.
type DeleteMode string

const (
	// DeleteCascade removes the consultancy together with its students,
	// their identities and their transactions.
	DeleteCascade DeleteMode = "cascade"
	// DeleteDetach removes the consultancy and its agents but keeps the
	// students, clearing their tenant reference for later reassignment.
	DeleteDetach DeleteMode = "detach"
)

// Registry owns consultancy records: activation, deactivation,
// hostel-code uniqueness and the two delete modes.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a Registry over db.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// CreateConsultancyInput carries the fields for registering a hostel and
// its first agent.
type CreateConsultancyInput struct {
	HostelCode        string
	ContactPerson     string
	Email             string
	Phone             string
	Address           string
	PaymentGatewayID  string
	PaymentGatewayKey string
	AgentUsername     string
	AgentPassword     string
}

// CreateOrReactivate registers a consultancy under a hostel code. If a
// deactivated consultancy already holds the code it is reactivated in
// place, preserving its id and historic students; an active holder is a
// conflict. A brand new consultancy gets exactly one agent identity,
// created in the same transaction.
func (r *Registry) CreateOrReactivate(in CreateConsultancyInput) (*models.Consultancy, error) {
	code := strings.ToUpper(strings.TrimSpace(in.HostelCode))
	if !hostels.IsValid(code) {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid hostel code %q", code)
	}

	var result *models.Consultancy
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Consultancy
		err := tx.Where("hostel_code = ?", code).First(&existing).Error
		switch {
		case err == nil:
			if existing.IsActive {
				return apperrors.Wrap(apperrors.ErrConflict, "hostel code %s already in use", code)
			}
			// Reactivate in place: same id, same historic relationships.
			existing.IsActive = true
			existing.ContactPerson = in.ContactPerson
			existing.Email = in.Email
			existing.Phone = in.Phone
			existing.Address = in.Address
			existing.PaymentGatewayID = in.PaymentGatewayID
			existing.PaymentGatewayKey = in.PaymentGatewayKey
			if err := tx.Save(&existing).Error; err != nil {
				return translateConstraint(err)
			}
			result = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fall through to creation
		default:
			return err
		}

		consultancy := models.Consultancy{
			Name:              hostels.Name(code),
			HostelCode:        code,
			ContactPerson:     in.ContactPerson,
			Email:             in.Email,
			Phone:             in.Phone,
			Address:           in.Address,
			PaymentGatewayID:  in.PaymentGatewayID,
			PaymentGatewayKey: in.PaymentGatewayKey,
			IsActive:          true,
		}
		if err := tx.Create(&consultancy).Error; err != nil {
			return translateConstraint(err)
		}

		hash, err := utils.HashPassword(in.AgentPassword)
		if err != nil {
			return err
		}
		agent := models.User{
			Username:      in.AgentUsername,
			Password:      hash,
			Email:         in.Email,
			Role:          models.RoleAgent,
			ConsultancyID: &consultancy.ID,
		}
		if err := tx.Create(&agent).Error; err != nil {
			return translateConstraint(err)
		}

		result = &consultancy
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deactivate marks a consultancy inactive. Students and their data stay
// queryable and the hostel code becomes available for reuse; the change
// is reversible through CreateOrReactivate.
func (r *Registry) Deactivate(id uuid.UUID) error {
	consultancy, err := r.Get(id)
	if err != nil {
		return err
	}
	consultancy.IsActive = false
	return r.db.Save(consultancy).Error
}

// Delete removes a consultancy. Both modes are all-or-nothing: any
// failure rolls back every change. Cascade order follows the foreign
// keys: transactions, students, student identities, agents, tenant.
func (r *Registry) Delete(id uuid.UUID, mode DeleteMode) error {
	if mode != DeleteCascade && mode != DeleteDetach {
		return apperrors.Wrap(apperrors.ErrValidation, "unknown delete mode %q", mode)
	}

	if _, err := r.Get(id); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if mode == DeleteCascade {
			var students []models.Student
			if err := tx.Where("consultancy_id = ?", id).Find(&students).Error; err != nil {
				return err
			}
			for _, s := range students {
				if err := tx.Where("student_id = ?", s.ID).Delete(&models.Transaction{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&models.Student{}, "id = ?", s.ID).Error; err != nil {
					return err
				}
				if err := tx.Delete(&models.User{}, "id = ?", s.UserID).Error; err != nil {
					return err
				}
			}
		} else {
			// Keep the students but leave them unassigned.
			if err := tx.Model(&models.Student{}).
				Where("consultancy_id = ?", id).
				Update("consultancy_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).
				Where("consultancy_id = ? AND role = ?", id, models.RoleStudent).
				Update("consultancy_id", nil).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("consultancy_id = ? AND role = ?", id, models.RoleAgent).
			Delete(&models.User{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Consultancy{}, "id = ?", id).Error
	})
}

// ConsultancyUpdate carries a partial-field consultancy edit. Only
// non-nil fields change.
type ConsultancyUpdate struct {
	Name              *string
	ContactPerson     *string
	Email             *string
	Phone             *string
	Address           *string
	PaymentGatewayID  *string
	PaymentGatewayKey *string

	// Agent edit, applied to the consultancy's agent identity. A missing
	// agent is created when a username is supplied.
	AgentUsername *string
	AgentPassword *string
}

// Update applies a partial-field edit to a consultancy and its agent in
// one transaction.
func (r *Registry) Update(id uuid.UUID, upd ConsultancyUpdate) (*models.Consultancy, error) {
	consultancy, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if upd.Name != nil {
			consultancy.Name = *upd.Name
		}
		if upd.ContactPerson != nil {
			consultancy.ContactPerson = *upd.ContactPerson
		}
		if upd.Email != nil {
			consultancy.Email = *upd.Email
		}
		if upd.Phone != nil {
			consultancy.Phone = *upd.Phone
		}
		if upd.Address != nil {
			consultancy.Address = *upd.Address
		}
		if upd.PaymentGatewayID != nil {
			consultancy.PaymentGatewayID = *upd.PaymentGatewayID
		}
		if upd.PaymentGatewayKey != nil {
			consultancy.PaymentGatewayKey = *upd.PaymentGatewayKey
		}
		if err := tx.Save(consultancy).Error; err != nil {
			return translateConstraint(err)
		}

		if upd.AgentUsername == nil && upd.AgentPassword == nil {
			return nil
		}

		var agent models.User
		err := tx.Where("consultancy_id = ? AND role = ?", id, models.RoleAgent).First(&agent).Error
		switch {
		case err == nil:
			if upd.AgentUsername != nil {
				agent.Username = *upd.AgentUsername
			}
			agent.Email = consultancy.Email
			if upd.AgentPassword != nil && *upd.AgentPassword != "" {
				hash, err := utils.HashPassword(*upd.AgentPassword)
				if err != nil {
					return err
				}
				agent.Password = hash
			}
			if err := tx.Save(&agent).Error; err != nil {
				return translateConstraint(err)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if upd.AgentUsername == nil {
				return nil
			}
			password := "123456"
			if upd.AgentPassword != nil && *upd.AgentPassword != "" {
				password = *upd.AgentPassword
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			agent = models.User{
				Username:      *upd.AgentUsername,
				Password:      hash,
				Email:         consultancy.Email,
				Role:          models.RoleAgent,
				ConsultancyID: &id,
			}
			if err := tx.Create(&agent).Error; err != nil {
				return translateConstraint(err)
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return consultancy, nil
}

// Get fetches one consultancy by id.
func (r *Registry) Get(id uuid.UUID) (*models.Consultancy, error) {
	var consultancy models.Consultancy
	if err := r.db.First(&consultancy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "consultancy %s", id)
		}
		return nil, err
	}
	return &consultancy, nil
}

// List returns all consultancies, active and deactivated.
func (r *Registry) List() ([]models.Consultancy, error) {
	var consultancies []models.Consultancy
	if err := r.db.Preload("Agents").Find(&consultancies).Error; err != nil {
		return nil, err
	}
	return consultancies, nil
}

// ListActive returns the active consultancies only.
func (r *Registry) ListActive() ([]models.Consultancy, error) {
	var consultancies []models.Consultancy
	if err := r.db.Where("is_active = ?", true).Find(&consultancies).Error; err != nil {
		return nil, err
	}
	return consultancies, nil
}

// AvailableCodes returns the vocabulary codes not held by an active
// consultancy. Codes held by deactivated consultancies remain available
// for reuse through reactivation.
func (r *Registry) AvailableCodes() (map[string]string, error) {
	var used []string
	if err := r.db.Model(&models.Consultancy{}).
		Where("is_active = ?", true).
		Pluck("hostel_code", &used).Error; err != nil {
		return nil, err
	}

	usedSet := make(map[string]bool, len(used))
	for _, code := range used {
		usedSet[code] = true
	}

	available := make(map[string]string)
	for code, name := range hostels.Names {
		if !usedSet[code] {
			available[code] = name
		}
	}
	return available, nil
}

// translateConstraint maps gorm's translated uniqueness error to the
// conflict kind.
func translateConstraint(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Wrap(apperrors.ErrConflict, "record already exists")
	}
	return err
}
