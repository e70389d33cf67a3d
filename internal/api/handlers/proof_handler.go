// server/internal/api/handlers/proof_handler.go
package handlers

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"rl-express-api-server/internal/media"
	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/report"
	"rl-express-api-server/internal/s3"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FileUploader abstracts the object storage for proof media.
type FileUploader interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

type ProofHandler struct {
	store    *store.Store
	uploader FileUploader
	log      *logrus.Logger
}

func NewProofHandler(s *store.Store, uploader FileUploader, log *logrus.Logger) *ProofHandler {
	return &ProofHandler{store: s, uploader: uploader, log: log}
}

// Complete records the proof-of-delivery bundle and finalizes the
// delivery. Receiver name and photo are required; nothing is uploaded or
// changed until the whole request validates.
func (h *ProofHandler) Complete(c *gin.Context) {
	id := c.Param("id")
	d, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	if d.Status != models.StatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Delivery is already completed or canceled"})
		return
	}

	receiverName := c.PostForm("receiverName")
	fieldErrors := gin.H{}
	if receiverName == "" {
		fieldErrors["receiverName"] = "Receiver name is required"
	}
	photoFile, err := c.FormFile("photo")
	if err != nil {
		fieldErrors["photo"] = "Proof photo is required"
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fieldErrors})
		return
	}

	photoData, err := readMultipartFile(photoFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read proof photo"})
		return
	}
	scaled, err := media.DownscaleJPEG(photoData, media.MaxDimension)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Proof photo is not a valid image"})
		return
	}

	photoURL, err := h.uploader.UploadFile(c.Request.Context(), bytes.NewReader(scaled), s3.ProofPhotoKey(id), "image/jpeg")
	if err != nil {
		h.log.WithError(err).Error("proof photo upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not store proof photo"})
		return
	}

	proof := models.Proof{
		PhotoURL:             photoURL,
		ReceiverName:         receiverName,
		ReceiverDoc:          c.PostForm("receiverDoc"),
		ReceiverRelationship: c.PostForm("receiverRelationship"),
		Notes:                c.PostForm("notes"),
	}

	signatureURL, err := h.uploadSignature(c, id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not store signature"})
		return
	}
	proof.SignatureURL = signatureURL

	if err := h.store.Complete(c.Request.Context(), id, proof); err != nil {
		if errors.Is(err, store.ErrFinalized) {
			c.JSON(http.StatusConflict, gin.H{"error": "Delivery is already completed or canceled"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}

	completed, _ := h.store.Get(id)
	c.JSON(http.StatusOK, completed)
}

// uploadSignature stores the signature image if one was actually drawn.
// A blank canvas is treated as "no signature" and nothing is uploaded.
func (h *ProofHandler) uploadSignature(c *gin.Context, deliveryID string) (string, error) {
	sigFile, err := c.FormFile("signature")
	if err != nil {
		return "", nil
	}
	sigData, err := readMultipartFile(sigFile)
	if err != nil {
		return "", err
	}

	var strokes *int
	if raw := c.PostForm("signatureStrokes"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			strokes = &n
		}
	}
	if media.SignatureEmpty(strokes, sigData, color.White) {
		return "", nil
	}

	return h.uploader.UploadFile(c.Request.Context(), bytes.NewReader(sigData), s3.SignatureKey(deliveryID), "image/png")
}

// Receipt renders the shareable receipt text for a completed delivery.
func (h *ProofHandler) Receipt(c *gin.Context) {
	d, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	if d.Status != models.StatusCompleted {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Delivery is not completed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": report.ReceiptText(d)})
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
