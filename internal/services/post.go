package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/afterposten/backend/internal/models"
	"gorm.io/gorm"
)

// DraftOutput is the structured text a draft is stored as.
type DraftOutput struct {
	Hook         string   `json:"hook"`
	Body         string   `json:"body"`
	Bullets      []string `json:"bullets,omitempty"`
	CTA          string   `json:"cta,omitempty"`
	Hashtags     []string `json:"hashtags"`
	FirstComment string   `json:"firstComment,omitempty"`
}

// FormatDraftText renders a draft as publishable text: hook, body, bullets,
// call to action and the hashtag line, separated by blank lines.
func FormatDraftText(d DraftOutput) string {
	parts := []string{d.Hook, "", d.Body}

	if len(d.Bullets) > 0 {
		parts = append(parts, "")
		for _, b := range d.Bullets {
			parts = append(parts, "• "+b)
		}
	}

	if d.CTA != "" {
		parts = append(parts, "", d.CTA)
	}

	tags := make([]string, 0, len(d.Hashtags))
	for _, h := range d.Hashtags {
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}
	parts = append(parts, "", strings.Join(tags, " "))

	return strings.Join(parts, "\n")
}

// parseDraftHashtags is best-effort: malformed drafts yield no hashtags.
func parseDraftHashtags(contentJSON string) []string {
	var d struct {
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal([]byte(contentJSON), &d); err != nil || d.Hashtags == nil {
		return []string{}
	}
	return d.Hashtags
}

// PostContent is the view of a post the scheduler needs for delivery.
type PostContent struct {
	ID                  string
	Idea                string
	FinalText           *string
	Status              string
	PublisherProfileID  *string
	LatestDraftHashtags []string
	PrimaryAssetPath    *string
	PrimaryAssetFormat  string // png, jpeg
	PrimaryAssetAltText *string
}

// Text returns the final text, or the idea when no final text is set.
func (p *PostContent) Text() string {
	if p.FinalText != nil && *p.FinalText != "" {
		return *p.FinalText
	}
	return p.Idea
}

type PostService struct {
	db       *gorm.DB
	assetDir string
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// WithAssetDir makes CreateAsset open each image under dir, rejecting files
// that do not decode and recording their dimensions.
func (s *PostService) WithAssetDir(dir string) *PostService {
	s.assetDir = dir
	return s
}

// GetPost loads the delivery view of a post: the newest draft supplies the
// hashtags and the newest asset is the primary image.
func (s *PostService) GetPost(ctx context.Context, id string) (*PostContent, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content := &PostContent{
		ID:                  post.ID,
		Idea:                post.Idea,
		FinalText:           post.FinalText,
		Status:              post.Status,
		PublisherProfileID:  post.PublisherProfileID,
		LatestDraftHashtags: []string{},
		PrimaryAssetFormat:  "png",
	}
	if len(post.Drafts) > 0 {
		content.LatestDraftHashtags = parseDraftHashtags(post.Drafts[0].ContentJSON)
	}
	if len(post.Assets) > 0 {
		asset := post.Assets[0]
		content.PrimaryAssetPath = &asset.Path
		content.PrimaryAssetAltText = asset.AltText
		if asset.Type == models.AssetTypeJPEG {
			content.PrimaryAssetFormat = "jpeg"
		}
	}
	return content, nil
}

func (s *PostService) SetPostStatus(ctx context.Context, id, status string) error {
	if !models.ValidPostStatus(status) {
		return fmt.Errorf("%w: unknown post status %q", ErrInvalidInput, status)
	}
	result := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, idea string) (*models.Post, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, fmt.Errorf("%w: idea is required", ErrInvalidInput)
	}
	post := &models.Post{Idea: idea, Status: models.PostStatusIdea}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Drafts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Assets", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

type PostListRequest struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

func (s *PostService) List(ctx context.Context, req *PostListRequest) ([]models.Post, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("idea LIKE ? OR final_text LIKE ?", like, like)
	}

	posts := []models.Post{}
	if err := query.Order("updated_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePostRequest is partial. An empty FinalText or PublisherProfileID
// clears the field.
type UpdatePostRequest struct {
	Idea               *string `json:"idea"`
	FinalText          *string `json:"finalText"`
	Status             *string `json:"status"`
	PublisherProfileID *string `json:"publisherProfileId"`
}

func (s *PostService) Update(ctx context.Context, id string, req *UpdatePostRequest) (*models.Post, error) {
	updates := map[string]interface{}{}
	if req.Idea != nil {
		idea := strings.TrimSpace(*req.Idea)
		if idea == "" {
			return nil, fmt.Errorf("%w: idea cannot be empty", ErrInvalidInput)
		}
		updates["idea"] = idea
	}
	if req.FinalText != nil {
		updates["final_text"] = nullableString(*req.FinalText)
	}
	if req.Status != nil {
		if !models.ValidPostStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown post status %q", ErrInvalidInput, *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.PublisherProfileID != nil {
		updates["publisher_profile_id"] = nullableString(*req.PublisherProfileID)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a post with its drafts, assets, schedules and runs.
func (s *PostService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.Draft{}, &models.Asset{}, &models.Schedule{}, &models.PublishRun{}} {
			if err := tx.Where("post_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&models.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

type CreateDraftRequest struct {
	Kind    string      `json:"kind" binding:"omitempty,oneof=draft variant"`
	Content DraftOutput `json:"content"`
}

// CreateDraft stores an already generated draft. A post still at the idea
// stage moves to draft.
func (s *PostService) CreateDraft(ctx context.Context, postID string, req *CreateDraftRequest) (*models.Draft, error) {
	if strings.TrimSpace(req.Content.Hook) == "" && strings.TrimSpace(req.Content.Body) == "" {
		return nil, fmt.Errorf("%w: draft needs a hook or a body", ErrInvalidInput)
	}
	if req.Content.Hashtags == nil {
		req.Content.Hashtags = []string{}
	}
	kind := req.Kind
	if kind == "" {
		kind = models.DraftKindDraft
	}

	content, err := json.Marshal(req.Content)
	if err != nil {
		return nil, err
	}

	draft := &models.Draft{PostID: postID, Kind: kind, ContentJSON: string(content)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if err := tx.Create(draft).Error; err != nil {
			return err
		}
		if post.Status == models.PostStatusIdea {
			return tx.Model(&post).Update("status", models.PostStatusDraft).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *PostService) ListDrafts(ctx context.Context, postID string) ([]models.Draft, error) {
	drafts := []models.Draft{}
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at DESC").Find(&drafts).Error
	return drafts, err
}

func (s *PostService) DeleteDraft(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Draft{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

type CreateAssetRequest struct {
	Type     string  `json:"type" binding:"required,oneof=image_png image_jpeg"`
	Path     string  `json:"path" binding:"required"`
	AltText  *string `json:"altText"`
	MetaJSON string  `json:"metaJson"`
}

func (s *PostService) CreateAsset(ctx context.Context, postID string, req *CreateAssetRequest) (*models.Asset, error) {
	if strings.Contains(req.Path, "..") {
		return nil, fmt.Errorf("%w: asset path must stay inside the public dir", ErrInvalidInput)
	}
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(req.Path, "/")
	meta := req.MetaJSON
	if s.assetDir != "" {
		inspected, err := inspectAsset(filepath.Join(s.assetDir, filepath.FromSlash(path)), req.Type, meta)
		if err != nil {
			return nil, err
		}
		meta = inspected
	}
	if meta == "" {
		meta = "{}"
	}
	asset := &models.Asset{
		PostID:   postID,
		Type:     req.Type,
		Path:     path,
		AltText:  req.AltText,
		MetaJSON: meta,
	}
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *PostService) UpdateAssetAltText(ctx context.Context, id, altText string) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).First(&asset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&asset).Update("alt_text", altText).Error; err != nil {
		return nil, err
	}
	asset.AltText = &altText
	return &asset, nil
}

func (s *PostService) DeleteAsset(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Asset{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
