package handlers

import (
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

type createPostRequest struct {
	Idea string `json:"idea" binding:"required"`
}

// GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	var req services.PostListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	posts, err := h.postService.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, posts)
}

// POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.postService.Create(c.Request.Context(), req.Idea)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, post)
}

// GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, post)
}

// PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	var req services.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.postService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, post)
}

// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// GET /api/posts/:id/drafts
func (h *PostHandler) ListDrafts(c *gin.Context) {
	if _, err := h.postService.Get(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	drafts, err := h.postService.ListDrafts(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, drafts)
}

// POST /api/posts/:id/drafts
func (h *PostHandler) CreateDraft(c *gin.Context) {
	var req services.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	draft, err := h.postService.CreateDraft(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, draft)
}

// DELETE /api/drafts/:id
func (h *PostHandler) DeleteDraft(c *gin.Context) {
	if err := h.postService.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// POST /api/posts/:id/assets
func (h *PostHandler) CreateAsset(c *gin.Context) {
	var req services.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	asset, err := h.postService.CreateAsset(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, asset)
}

type altTextRequest struct {
	AltText string `json:"altText"`
}

// PUT /api/assets/:id/alt-text
func (h *PostHandler) UpdateAssetAltText(c *gin.Context) {
	var req altTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	asset, err := h.postService.UpdateAssetAltText(c.Request.Context(), c.Param("id"), req.AltText)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, asset)
}

// DELETE /api/assets/:id
func (h *PostHandler) DeleteAsset(c *gin.Context) {
	if err := h.postService.DeleteAsset(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
