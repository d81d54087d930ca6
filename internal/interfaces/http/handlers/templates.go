package handlers

import (
	_ "embed"
	"html/template"
)

//go:embed templates/login.html
var loginPageTemplateHTML string

//go:embed templates/message.html
var messagePageTemplateHTML string

var loginPageTemplate = template.Must(template.New("login").Parse(loginPageTemplateHTML))
var messagePageTemplate = template.Must(template.New("message").Parse(messagePageTemplateHTML))

// LoginPageData represents the data for the login page
type LoginPageData struct {
	Username  string
	ReturnURL string
	Errors    []string
}

// MessagePageData represents a page that only shows a message
type MessagePageData struct {
	Title   string
	Message string
}
