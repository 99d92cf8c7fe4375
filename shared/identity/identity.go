// Package identity owns login identities: credential verification, the
// OTP password-reset flow and the step-up password change used by
// students. Reset OTPs live on the user row with an absolute expiry;
// the short-lived session markers live in a keyed TTL store so they
// survive restarts and are visible across server instances.
package identity

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/mailer"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// otpTTL bounds both the reset OTP and the step-up codes.
const otpTTL = 10 * time.Minute

// CodeStore is a keyed, time-bounded, single-use value store. Production
// wiring uses Redis (utils.RedisCodeStore); tests substitute an
// in-memory fake.
type CodeStore interface {
	Put(key, value string, ttl time.Duration) error
	Get(key string) (string, error)
	Del(key string) error
}

// Service is the identity store.
type Service struct {
	db    *gorm.DB
	mail  mailer.Mailer
	codes CodeStore
}

// NewService creates an identity Service.
func NewService(db *gorm.DB, mail mailer.Mailer, codes CodeStore) *Service {
	return &Service{db: db, mail: mail, codes: codes}
}

// Authenticate verifies a username/password pair and returns the
// identity. The bcrypt comparison is constant-time.
func (s *Service) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidCredential, "invalid username or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidCredential, "invalid username or password")
	}
	return &user, nil
}

// GetUser fetches one identity by id.
func (s *Service) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "user %s", id)
		}
		return nil, err
	}
	return &user, nil
}

// RequestReset generates a reset OTP for the identity owning email and
// hands it to the delivery collaborator. Only one code is outstanding
// per identity; a new request overwrites the previous one. The returned
// deliveryErr reports a failed send separately — the stored code is not
// rolled back.
func (s *Service) RequestReset(email string) (userID uuid.UUID, deliveryErr error, err error) {
	var user models.User
	if dbErr := s.db.Preload("Consultancy").Where("email = ?", email).First(&user).Error; dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil, apperrors.Wrap(apperrors.ErrNotFound, "no account found with this email")
		}
		return uuid.Nil, nil, dbErr
	}

	// Agents of a deactivated hostel cannot reset their way back in.
	if user.Role == models.RoleAgent && user.Consultancy != nil && !user.Consultancy.IsActive {
		return uuid.Nil, nil, apperrors.Wrap(apperrors.ErrValidation, "your hostel is deactivated, contact admin")
	}

	code := generateOTP()
	expiry := time.Now().UTC().Add(otpTTL)
	if dbErr := s.db.Model(&user).Updates(map[string]interface{}{
		"reset_otp":        code,
		"reset_otp_expiry": expiry,
	}).Error; dbErr != nil {
		return uuid.Nil, nil, dbErr
	}

	deliveryErr = mailer.SendResetOTP(s.mail, user.Email, code)
	return user.ID, deliveryErr, nil
}

// VerifyResetCode checks the outstanding OTP and, on success, opens a
// single-use reset window for CompleteReset. Expiry is evaluated here
// against the stored absolute timestamp.
func (s *Service) VerifyResetCode(userID uuid.UUID, code string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	if user.ResetOTP == nil || *user.ResetOTP != code {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid OTP")
	}
	if user.ResetOTPExpiry == nil || time.Now().UTC().After(*user.ResetOTPExpiry) {
		return apperrors.Wrap(apperrors.ErrExpired, "OTP expired")
	}

	return s.codes.Put(resetSessionKey(userID), "verified", otpTTL)
}

// CompleteReset replaces the credential and clears the OTP state in one
// transaction. It requires the reset window opened by VerifyResetCode
// and consumes it, so the flow is single-use.
func (s *Service) CompleteReset(userID uuid.UUID, newPassword string) error {
	if _, err := s.codes.Get(resetSessionKey(userID)); err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return apperrors.Wrap(apperrors.ErrExpired, "reset session expired or not verified")
		}
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password":         hash,
		"reset_otp":        nil,
		"reset_otp_expiry": nil,
	}).Error; err != nil {
		return err
	}

	return s.codes.Del(resetSessionKey(userID))
}

func resetSessionKey(userID uuid.UUID) string {
	return "reset:" + userID.String()
}

// generateOTP returns a 6-digit numeric one-time code.
func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand failure means the process is in serious trouble;
		// fall back to a fixed-range value derived from the clock.
		return fmt.Sprintf("%06d", time.Now().UnixNano()%900000+100000)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// stepUpSession is the payload stored for a pending step-up
// verification.
type stepUpSession struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

// SendStepUpCode opens a step-up verification session for a password
// change and delivers the code to the chosen destination. Returns an
// opaque session id the client echoes back.
func (s *Service) SendStepUpCode(userID uuid.UUID, destination string) (string, error) {
	code := generateOTP()
	sessionID := uuid.New().String()

	payload, err := json.Marshal(stepUpSession{Code: code, UserID: userID.String()})
	if err != nil {
		return "", err
	}
	if err := s.codes.Put(stepUpKey(sessionID), string(payload), otpTTL); err != nil {
		return "", err
	}

	if err := mailer.SendStepUpCode(s.mail, destination, code); err != nil {
		// The session stays valid; the caller decides whether to retry
		// delivery.
		return sessionID, err
	}
	return sessionID, nil
}

// ChangeVerifiedPassword completes a step-up password change: the
// session must exist and match the caller, the code must match, and the
// current password must check out. The session is consumed on success.
func (s *Service) ChangeVerifiedPassword(sessionID, code string, userID uuid.UUID, currentPassword, newPassword string) error {
	raw, err := s.codes.Get(stepUpKey(sessionID))
	if err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return apperrors.Wrap(apperrors.ErrExpired, "invalid or expired OTP session")
		}
		return err
	}

	var session stepUpSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return err
	}
	if session.UserID != userID.String() {
		return apperrors.Wrap(apperrors.ErrUnauthorized, "session mismatch")
	}
	if session.Code != code {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid OTP code")
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.Password, currentPassword) {
		return apperrors.Wrap(apperrors.ErrInvalidCredential, "current password is incorrect")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password", hash).Error; err != nil {
		return err
	}

	return s.codes.Del(stepUpKey(sessionID))
}

func stepUpKey(sessionID string) string {
	return "stepup:" + sessionID
}
