package auth

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes required for our app (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://127.0.0.1:8080/auth/callback"
}

// NewOAuthConfig creates an oauth2.Config from our Config
func NewOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// Athlete identifies the Strava account a token belongs to
type Athlete struct {
	ID   int64
	Name string
}

// ExtractAthlete reads the athlete summary Strava includes in the token
// response. A zero ID means the extras were missing.
func ExtractAthlete(token *oauth2.Token) Athlete {
	var a Athlete
	athlete, ok := token.Extra("athlete").(map[string]interface{})
	if !ok {
		return a
	}
	if id, ok := athlete["id"].(float64); ok {
		a.ID = int64(id)
	}
	first, _ := athlete["firstname"].(string)
	last, _ := athlete["lastname"].(string)
	a.Name = strings.TrimSpace(first + " " + last)
	return a
}
