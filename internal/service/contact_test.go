package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactStripsDataURLPrefix(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewContactService(mailer)
	b64 := base64.StdEncoding.EncodeToString(pngData)

	err := svc.Send(context.Background(), ContactMessage{
		Name: "Ana", Email: "ana@example.com", Message: "Hola",
		Attachments: []Attachment{{Filename: "plan.png", Content: "data:image/png;base64," + b64}},
	})
	require.NoError(t, err)
	require.Len(t, mailer.contacts, 1)
	att := mailer.contacts[0].Attachments[0]
	assert.Equal(t, b64, att.Content)
	assert.Equal(t, "image/png", att.Type)
}

func TestContactErrors(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewContactService(mailer)

	err := svc.Send(context.Background(), ContactMessage{Attachments: []Attachment{{Filename: "x", Content: "%%%"}}})
	assert.ErrorIs(t, err, ErrBadRequest)

	mailer.err = errors.New("queue unavailable")
	err = svc.Send(context.Background(), ContactMessage{Name: "Ana"})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("x")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.ErrorIs(t, Conflict("dup"), ErrConflict)
	assert.NotErrorIs(t, Conflict("dup"), ErrNotFound)

	cause := errors.New("boom")
	err := Internal("op", cause)
	assert.ErrorIs(t, err, cause)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "internal server error", e.Message)
}
