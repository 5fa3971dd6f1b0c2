package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/afterposten/backend/internal/models"
	"gorm.io/gorm"
)

// SecretCipher encrypts publisher secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type PublisherService struct {
	db     *gorm.DB
	cipher SecretCipher
}

func NewPublisherService(db *gorm.DB, cipher SecretCipher) *PublisherService {
	return &PublisherService{db: db, cipher: cipher}
}

// PublisherProfileView is the API shape of a profile; secrets are reduced
// to presence flags.
type PublisherProfileView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	WebhookURL       string    `json:"webhookUrl"`
	AuthType         string    `json:"authType"`
	AuthHeaderName   *string   `json:"authHeaderName"`
	HasAuthValue     bool      `json:"hasAuthValue"`
	HasBearerToken   bool      `json:"hasBearerToken"`
	BinaryFieldName  string    `json:"binaryFieldName"`
	ExtraPayloadJSON string    `json:"extraPayloadJson"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newProfileView(p *models.PublisherProfile) *PublisherProfileView {
	return &PublisherProfileView{
		ID:               p.ID,
		Name:             p.Name,
		WebhookURL:       p.WebhookURL,
		AuthType:         p.AuthType,
		AuthHeaderName:   p.AuthHeaderName,
		HasAuthValue:     p.AuthHeaderValueEnc != nil && *p.AuthHeaderValueEnc != "",
		HasBearerToken:   p.BearerTokenEnc != nil && *p.BearerTokenEnc != "",
		BinaryFieldName:  p.BinaryFieldName,
		ExtraPayloadJSON: p.ExtraPayloadJSON,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type CreatePublisherRequest struct {
	Name             string `json:"name" binding:"required"`
	WebhookURL       string `json:"webhookUrl" binding:"required"`
	AuthType         string `json:"authType" binding:"omitempty,oneof=none header bearer"`
	AuthHeaderName   string `json:"authHeaderName"`
	AuthHeaderValue  string `json:"authHeaderValue"`
	BearerToken      string `json:"bearerToken"`
	BinaryFieldName  string `json:"binaryFieldName"`
	ExtraPayloadJSON string `json:"extraPayloadJson"`
}

// UpdatePublisherRequest is partial. An empty secret string clears the secret.
type UpdatePublisherRequest struct {
	Name             *string `json:"name"`
	WebhookURL       *string `json:"webhookUrl"`
	AuthType         *string `json:"authType" binding:"omitempty,oneof=none header bearer"`
	AuthHeaderName   *string `json:"authHeaderName"`
	AuthHeaderValue  *string `json:"authHeaderValue"`
	BearerToken      *string `json:"bearerToken"`
	BinaryFieldName  *string `json:"binaryFieldName"`
	ExtraPayloadJSON *string `json:"extraPayloadJson"`
}

func (s *PublisherService) List(ctx context.Context) ([]*PublisherProfileView, error) {
	var profiles []models.PublisherProfile
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	views := make([]*PublisherProfileView, 0, len(profiles))
	for i := range profiles {
		views = append(views, newProfileView(&profiles[i]))
	}
	return views, nil
}

func (s *PublisherService) Get(ctx context.Context, id string) (*PublisherProfileView, error) {
	profile, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return newProfileView(profile), nil
}

func (s *PublisherService) Create(ctx context.Context, req *CreatePublisherRequest) (*PublisherProfileView, error) {
	if err := validateWebhookURL(req.WebhookURL); err != nil {
		return nil, err
	}
	extra, err := normalizeExtraPayload(req.ExtraPayloadJSON)
	if err != nil {
		return nil, err
	}

	profile := &models.PublisherProfile{
		Name:             strings.TrimSpace(req.Name),
		WebhookURL:       req.WebhookURL,
		AuthType:         req.AuthType,
		AuthHeaderName:   nullableString(req.AuthHeaderName),
		BinaryFieldName:  req.BinaryFieldName,
		ExtraPayloadJSON: extra,
	}
	if profile.AuthType == "" {
		profile.AuthType = models.AuthTypeNone
	}
	if profile.BinaryFieldName == "" {
		profile.BinaryFieldName = models.DefaultBinaryFieldName
	}
	if profile.AuthHeaderValueEnc, err = s.encryptOptional(req.AuthHeaderValue); err != nil {
		return nil, err
	}
	if profile.BearerTokenEnc, err = s.encryptOptional(req.BearerToken); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return newProfileView(profile), nil
}

func (s *PublisherService) Update(ctx context.Context, id string, req *UpdatePublisherRequest) (*PublisherProfileView, error) {
	profile, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		updates["name"] = name
	}
	if req.WebhookURL != nil {
		if err := validateWebhookURL(*req.WebhookURL); err != nil {
			return nil, err
		}
		updates["webhook_url"] = *req.WebhookURL
	}
	if req.AuthType != nil {
		updates["auth_type"] = *req.AuthType
	}
	if req.AuthHeaderName != nil {
		updates["auth_header_name"] = nullableString(*req.AuthHeaderName)
	}
	if req.AuthHeaderValue != nil {
		enc, err := s.encryptOptional(*req.AuthHeaderValue)
		if err != nil {
			return nil, err
		}
		updates["auth_header_value_enc"] = enc
	}
	if req.BearerToken != nil {
		enc, err := s.encryptOptional(*req.BearerToken)
		if err != nil {
			return nil, err
		}
		updates["bearer_token_enc"] = enc
	}
	if req.BinaryFieldName != nil {
		name := *req.BinaryFieldName
		if name == "" {
			name = models.DefaultBinaryFieldName
		}
		updates["binary_field_name"] = name
	}
	if req.ExtraPayloadJSON != nil {
		extra, err := normalizeExtraPayload(*req.ExtraPayloadJSON)
		if err != nil {
			return nil, err
		}
		updates["extra_payload_json"] = extra
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes the profile and detaches it from posts, schedules and the
// default setting.
func (s *PublisherService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.PublisherProfile{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProfileNotFound
		}
		if err := tx.Model(&models.Post{}).Where("publisher_profile_id = ?", id).
			Update("publisher_profile_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Schedule{}).Where("publisher_profile_id = ?", id).
			Update("publisher_profile_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&models.SystemConfig{}).
			Where("config_key = ? AND value = ?", models.ConfigKeyDefaultPublisherProfileID, id).
			Update("value", "").Error
	})
}

// GetTarget returns the secret-bearing delivery target for a profile.
// Secrets stay encrypted; the sink decrypts them at call time.
func (s *PublisherService) GetTarget(ctx context.Context, id string) (*PublishTarget, error) {
	profile, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	target := &PublishTarget{
		ID:               profile.ID,
		Name:             profile.Name,
		WebhookURL:       profile.WebhookURL,
		AuthType:         profile.AuthType,
		BinaryFieldName:  profile.BinaryFieldName,
		ExtraPayloadJSON: profile.ExtraPayloadJSON,
	}
	if profile.AuthHeaderName != nil {
		target.AuthHeaderName = *profile.AuthHeaderName
	}
	if profile.AuthHeaderValueEnc != nil {
		target.EncryptedAuthValue = *profile.AuthHeaderValueEnc
	}
	if profile.BearerTokenEnc != nil {
		target.EncryptedBearerToken = *profile.BearerTokenEnc
	}
	return target, nil
}

func (s *PublisherService) find(ctx context.Context, id string) (*models.PublisherProfile, error) {
	var profile models.PublisherProfile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *PublisherService) encryptOptional(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	enc, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}
	return &enc, nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: webhook url must be an absolute http(s) url", ErrInvalidInput)
	}
	return nil
}

// normalizeExtraPayload accepts an empty string or a JSON object.
func normalizeExtraPayload(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "{}", nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", fmt.Errorf("%w: extra payload must be a JSON object", ErrInvalidInput)
	}
	return raw, nil
}
