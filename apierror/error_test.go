package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thirdeye/go-rootcause/apierror"
)

func TestNew(t *testing.T) {
	err := apierror.New(errors.New("test error"), 0)
	require.Equal(t, "test error", err.Error())

	err = apierror.New(nil, http.StatusNotFound)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusNotFound, http.StatusText(http.StatusNotFound)), err.Error())

	err = apierror.New(nil, 0)
	require.Equal(t, "", err.Error())

	err = apierror.New(nil, 999)
	require.Equal(t, "999", err.Error())
}

func TestFromResponse(t *testing.T) {
	require.Nil(t, apierror.FromResponse(0, nil))

	err := apierror.FromResponse(0, []byte(" framework not found\n"))
	require.Equal(t, "framework not found", err.Error())

	err = apierror.FromResponse(http.StatusBadRequest, []byte(`{"message": "anomalyStart missing", "code": 400}`))
	require.Equal(t, "anomalyStart missing", err.Error())

	var ae *apierror.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusBadRequest, ae.Status())
	require.Equal(t, "400 Bad Request: anomalyStart missing", ae.Text())
	require.False(t, ae.Temporary())

	err = apierror.FromResponse(http.StatusBadGateway, nil)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusBadGateway, http.StatusText(http.StatusBadGateway)), err.Error())
	require.True(t, apierror.IsTemporary(err))
	require.True(t, apierror.IsTemporary(fmt.Errorf("relatedEvents: %w", err)))
	require.False(t, apierror.IsTemporary(errors.New("other")))
}

func TestUnwrap(t *testing.T) {
	errEOF := errors.New("end of file")
	err := apierror.New(errEOF, 0)
	require.ErrorIs(t, err, errEOF)
}
