package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("restore abc: %w", ObjectNotFound("abc"))

	assert.True(t, stderrors.Is(err, ErrObjectNotFound))
	assert.False(t, stderrors.Is(err, ErrRefNotFound))
	assert.Equal(t, ErrorTypeObjectNotFound, TypeOf(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "abc")
}

func TestIOUnwrap(t *testing.T) {
	err := IO("read", "objects/ab/cd", fs.ErrPermission)

	assert.True(t, stderrors.Is(err, ErrIO))
	assert.True(t, stderrors.Is(err, fs.ErrPermission))
	assert.Equal(t, "read objects/ab/cd: permission denied", err.Error())
}

func TestStatusCodeDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(stderrors.New("boom")))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("boom")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(ValidationError("bad", nil)))
}

func TestTypeMismatchDetails(t *testing.T) {
	err := TypeMismatch("abc", "commit", "blob")
	assert.Equal(t, `object abc: type mismatch: got "blob", want "commit"`, err.Error())
	assert.Equal(t, map[string]string{"want": "commit", "got": "blob"}, err.Details)
}
