// server/internal/api/handlers/proof_handler_test.go
package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu     sync.Mutex
	calls  []string
	err    error
	errKey string
}

func (f *fakeUploader) UploadFile(_ context.Context, file io.Reader, objectKey, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.errKey != "" && objectKey == f.errKey {
		return "", errors.New("upload rejected")
	}
	io.Copy(io.Discard, file)
	f.calls = append(f.calls, objectKey)
	return "https://cdn.example/" + objectKey, nil
}

func newProofTestStore(t *testing.T) *store.Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(kv.NewMemoryStore(), log)
	require.NoError(t, s.Load(context.Background()))
	s.Add(context.Background(), models.Delivery{
		ID:           "d1",
		CustomerName: "Ana",
		Address:      models.Address{FullAddress: "Rua A, 123", PostalCode: "01001-000"},
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	})
	return s
}

func proofRouter(s *store.Store, uploader *fakeUploader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	h := NewProofHandler(s, uploader, log)
	r := gin.New()
	r.POST("/deliveries/:id/complete", h.Complete)
	r.GET("/deliveries/:id/receipt", h.Receipt)
	return r
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)), nil))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestCompleteRejectsMissingReceiverName(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, nil, map[string][]byte{"photo": testJPEG(t)})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, uploader.calls)

	// Nothing changed.
	d, _ := s.Get("d1")
	require.Equal(t, models.StatusPending, d.Status)
	require.Nil(t, d.Proof)
}

func TestCompleteRejectsMissingPhoto(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{"receiverName": "Maria"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, uploader.calls)
	d, _ := s.Get("d1")
	require.Equal(t, models.StatusPending, d.Status)
}

func TestCompleteFinalizesDelivery(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{
		"receiverName":         "Maria",
		"receiverDoc":          "123456",
		"receiverRelationship": "Vizinha",
		"notes":                "Portaria",
		"signatureStrokes":     "0",
	}, map[string][]byte{"photo": testJPEG(t)})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"proofs/d1/photo.jpg"}, uploader.calls)

	d, _ := s.Get("d1")
	require.Equal(t, models.StatusCompleted, d.Status)
	require.NotNil(t, d.CompletedAt)
	require.NotNil(t, d.Proof)
	require.Equal(t, "Maria", d.Proof.ReceiverName)
	require.Empty(t, d.Proof.SignatureURL)
}

func TestCompleteSkipsBlankSignature(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{
		"receiverName":     "Maria",
		"signatureStrokes": "0",
	}, map[string][]byte{
		"photo":     testJPEG(t),
		"signature": testJPEG(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Only the photo was stored; the untouched canvas never uploads.
	require.Equal(t, []string{"proofs/d1/photo.jpg"}, uploader.calls)

	d, _ := s.Get("d1")
	require.Empty(t, d.Proof.SignatureURL)
}

func TestCompleteUploadsDrawnSignature(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{
		"receiverName":     "Maria",
		"signatureStrokes": "3",
	}, map[string][]byte{
		"photo":     testJPEG(t),
		"signature": testJPEG(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, uploader.calls, "proofs/d1/signature.png")

	d, _ := s.Get("d1")
	require.Equal(t, "https://cdn.example/proofs/d1/signature.png", d.Proof.SignatureURL)
}

func TestCompleteFailedSignatureUploadLeavesDeliveryPending(t *testing.T) {
	s := newProofTestStore(t)
	uploader := &fakeUploader{errKey: "proofs/d1/signature.png"}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{
		"receiverName":     "Maria",
		"signatureStrokes": "3",
	}, map[string][]byte{
		"photo":     testJPEG(t),
		"signature": testJPEG(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	d, _ := s.Get("d1")
	require.Equal(t, models.StatusPending, d.Status)
	require.Nil(t, d.Proof)
}

func TestCompleteRejectsFinalizedDelivery(t *testing.T) {
	s := newProofTestStore(t)
	require.NoError(t, s.Cancel(context.Background(), "d1"))
	uploader := &fakeUploader{}
	r := proofRouter(s, uploader)

	body, contentType := multipartBody(t, map[string]string{"receiverName": "Maria"}, map[string][]byte{"photo": testJPEG(t)})
	req := httptest.NewRequest(http.MethodPost, "/deliveries/d1/complete", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, uploader.calls)
}

func TestReceiptRequiresCompletedDelivery(t *testing.T) {
	s := newProofTestStore(t)
	r := proofRouter(s, &fakeUploader{})

	req := httptest.NewRequest(http.MethodGet, "/deliveries/d1/receipt", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.NoError(t, s.Complete(context.Background(), "d1", models.Proof{PhotoURL: "x", ReceiverName: "Maria"}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deliveries/d1/receipt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "COMPROVANTE DE ENTREGA")
}
