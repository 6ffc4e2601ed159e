package validator_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/utils/validator"
	"github.com/ymu4/document-processor/pkg/logger"
)

func newValidator() *validator.DocumentValidator {
	return validator.NewDocumentValidator(logger.NewNop(), nil)
}

func upload(name, mediaType, body string) models.Upload {
	return models.Upload{FileName: name, MediaType: mediaType, Data: []byte(body)}
}

func requireCode(t *testing.T, err error, code string) *models.ValidationError {
	t.Helper()
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, code, vErr.Code)
	return vErr
}

func TestValidateBatch_Empty(t *testing.T) {
	_, err := newValidator().ValidateBatch(nil)
	requireCode(t, err, models.CodeNoFiles)
}

func TestValidateBatch_TooManyFiles(t *testing.T) {
	var batch []models.Upload
	for i := 0; i < 6; i++ {
		batch = append(batch, upload(strings.Repeat("a", i+1)+".txt", "text/plain", "x"))
	}
	_, err := newValidator().ValidateBatch(batch)
	requireCode(t, err, models.CodeTooManyFiles)
}

func TestValidateBatch_Duplicate(t *testing.T) {
	_, err := newValidator().ValidateBatch([]models.Upload{
		upload("notes.txt", "text/plain", "a"),
		upload("notes.txt", "text/plain", "b"),
	})
	vErr := requireCode(t, err, models.CodeDuplicateName)
	assert.Equal(t, "notes.txt", vErr.FileName)
}

func TestValidateBatch_TooLarge(t *testing.T) {
	v := validator.NewDocumentValidator(logger.NewNop(), &validator.ValidatorConfig{
		MaxFiles:     5,
		MaxFileSize:  4,
		AllowedTypes: []string{"text/plain"},
	})
	_, err := v.ValidateBatch([]models.Upload{upload("big.txt", "text/plain", "12345")})
	requireCode(t, err, models.CodeFileTooLarge)
}

func TestValidateBatch_TypeNotAllowed(t *testing.T) {
	_, err := newValidator().ValidateBatch([]models.Upload{upload("photo.png", "image/png", "x")})
	requireCode(t, err, models.CodeTypeNotAllowed)
}

func TestValidateBatch_ResolvesTypes(t *testing.T) {
	out, err := newValidator().ValidateBatch([]models.Upload{
		upload("dir/steps.csv", "application/vnd.ms-excel", "a,b\n1,2\n"),
		upload("notes.txt", "", "plain words"),
		upload("readme", "application/octet-stream", "just some text"),
		upload("doc.pdf", "application/pdf; charset=binary", "%PDF-1.4 not really"),
	})
	require.NoError(t, err)

	assert.Equal(t, "steps.csv", out[0].FileName)
	assert.Equal(t, "text/csv", out[0].MediaType)
	assert.Equal(t, "text/plain", out[1].MediaType)
	assert.Equal(t, "text/plain", out[2].MediaType)
	assert.Equal(t, "application/pdf", out[3].MediaType, "unreadable PDFs pass page counting")
}

func TestResolveMediaType_Sniff(t *testing.T) {
	pdf := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 32)...)
	assert.Equal(t, "application/pdf", validator.ResolveMediaType("", "upload", pdf))
	assert.Equal(t, "application/octet-stream", validator.ResolveMediaType("", "upload", nil))
}

func TestValidateBatch_UnreadableUploadPassesThrough(t *testing.T) {
	broken := models.Upload{FileName: "broken.bin", ReadErr: errors.New("open failed")}

	out, err := newValidator().ValidateBatch([]models.Upload{broken, upload("ok.txt", "text/plain", "x")})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualError(t, out[0].ReadErr, "open failed")
	assert.Equal(t, "text/plain", out[1].MediaType)
}
