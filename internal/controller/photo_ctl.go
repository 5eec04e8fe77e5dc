package controller

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"thailao_logistics/internal/api/dto"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/service"
)

// ==================== PhotoController 照片与文件 ====================

// PhotoController 运单照片、通用上传与本地文件访问
type PhotoController struct {
	photoService   *service.PhotoService
	storageService *service.StorageService
}

// NewPhotoController 创建照片控制器
func NewPhotoController(photoService *service.PhotoService, storageService *service.StorageService) *PhotoController {
	return &PhotoController{photoService: photoService, storageService: storageService}
}

// List 运单照片
// @Summary 运单照片（最新在前）
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Success 200 {array} model.ShipmentPhoto
// @Router /shipments/{id}/photos [get]
func (ctl *PhotoController) List(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	photos, err := ctl.photoService.List(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, photos)
}

// Add 添加运单照片
// @Summary 添加运单照片
// @Description multipart 字段 photo 上传；或 JSON {url} 导入远程图片
// @Tags Photos
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "运单ID"
// @Param photo formData file false "图片"
// @Param type formData string false "RECEIVED | LOADING | DELIVERED | DAMAGE | OTHER"
// @Param notes formData string false "备注"
// @Success 200 {object} model.ShipmentPhoto
// @Failure 400 {object} ErrorResponse
// @Router /shipments/{id}/photos [post]
func (ctl *PhotoController) Add(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	actorID := middleware.GetUserID(c)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req dto.ImportPhotoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		photo, err := ctl.photoService.Import(c.Request.Context(), actorID, id, req.URL, service.PhotoMeta{Type: req.Type, Notes: req.Notes})
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, photo)
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "Photo file is required")
		return
	}
	data, err := readFormFile(fileHeader, ctl.storageService.MaxBytes())
	if err != nil {
		fail(c, err)
		return
	}

	meta := service.PhotoMeta{Type: c.PostForm("type")}
	if notes := c.PostForm("notes"); notes != "" {
		meta.Notes = &notes
	}

	photo, err := ctl.photoService.Upload(c.Request.Context(), actorID, id, data, fileHeader.Filename, meta)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, photo)
}

// Upload 通用上传（创建运单前的照片）
// @Summary 上传图片
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "图片"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Router /upload [post]
func (ctl *PhotoController) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "File is required")
		return
	}
	data, err := readFormFile(fileHeader, ctl.storageService.MaxBytes())
	if err != nil {
		fail(c, err)
		return
	}

	fileURL, err := ctl.storageService.SaveImage(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.UploadResponse{URL: fileURL})
}

// Serve 本地存储文件访问
// @Summary 访问上传文件
// @Tags Photos
// @Produce image/jpeg
// @Param filename path string true "文件名"
// @Success 200 {file} binary
// @Failure 404 {string} string
// @Router /uploads/{filename} [get]
func (ctl *PhotoController) Serve(c *gin.Context) {
	local := ctl.storageService.Local()
	if local == nil {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	data, contentType, err := local.Read(c.Param("filename"))
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.String(http.StatusNotFound, "File not found")
			return
		}
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, data)
}

// readFormFile 最多读 maxBytes+1 字节，超出即拒绝
func readFormFile(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if fh.Size > maxBytes {
		return nil, service.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, service.InvalidArgument("Cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, service.InvalidArgument("Cannot read uploaded file")
	}
	if int64(len(data)) > maxBytes {
		return nil, service.ErrFileTooLarge
	}
	return data, nil
}
