package templates

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SignInNotification(t *testing.T) {
	brand := Brand{AppName: "go-ddd-diary", AppURL: "https://diary.example.com", CompanyName: "Diary Co"}
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	data := NewSignInData(brand, "kabilan.diary@example.com",
		WithTime(time.Date(2024, 5, 1, 4, 30, 0, 0, time.UTC), ist))

	subject, text, html, err := Render(SignInNotification, data)
	require.NoError(t, err)
	assert.Equal(t, "New sign-in to your go-ddd-diary", subject)
	assert.Contains(t, text, "01 May 2024, 10:00 (Asia/Kolkata)")
	assert.Contains(t, text, "contact support")
	assert.Contains(t, html, `<a href="https://diary.example.com">`)
	assert.NotContains(t, html, "<img", "no logo configured")
}

func TestRender_EscapesHTML(t *testing.T) {
	brand := Brand{CompanyName: "<b>Evil</b>"}
	_, _, html, err := Render(SignInNotification, NewSignInData(brand, "a@example.com", WithTime(time.Now(), nil)))
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;Evil&lt;/b&gt;")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, _, err := Render("nope", EmailData{})
	assert.Error(t, err)
}

func TestDefaultFn(t *testing.T) {
	assert.Equal(t, "x", defaultFn("x", ""))
	assert.Equal(t, "x", defaultFn("x", nil))
	assert.Equal(t, "x", defaultFn("x", 0))
	assert.Equal(t, "y", defaultFn("x", "y"))
	assert.Equal(t, 3, defaultFn("x", 3))
}
