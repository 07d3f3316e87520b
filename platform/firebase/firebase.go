// Package firebase wraps the Firebase Admin auth client.
// This is part of the platform layer and contains no business logic.
package firebase

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrUserNotFound is returned when no Firebase account exists for a lookup.
var ErrUserNotFound = errors.New("firebase user not found")

// VerifiedToken is the subset of a verified ID token the app relies on.
type VerifiedToken struct {
	UID   string
	Email string
}

// AccountParams describes a Firebase account to create.
type AccountParams struct {
	Email       string
	Password    string
	DisplayName string
}

// Client wraps the Firebase Admin auth API.
type Client struct {
	auth *auth.Client
}

// NewClient initializes the Firebase app from a service-account credentials file.
// An empty file path falls back to application default credentials.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase auth client: %w", err)
	}

	return &Client{auth: authClient}, nil
}

// VerifyIDToken checks the signature and expiry of a client-issued ID token.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (VerifiedToken, error) {
	token, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return VerifiedToken{}, err
	}

	email, _ := token.Claims["email"].(string)
	return VerifiedToken{UID: token.UID, Email: email}, nil
}

// CreateAccount creates a password account and returns its UID.
func (c *Client) CreateAccount(ctx context.Context, params AccountParams) (string, error) {
	toCreate := (&auth.UserToCreate{}).
		Email(params.Email).
		Password(params.Password).
		DisplayName(params.DisplayName)

	record, err := c.auth.CreateUser(ctx, toCreate)
	if err != nil {
		return "", err
	}
	return record.UID, nil
}

// LookupUID returns the UID registered for an email.
func (c *Client) LookupUID(ctx context.Context, email string) (string, error) {
	record, err := c.auth.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return record.UID, nil
}

// DeleteAccount removes a Firebase account. Missing accounts are not an error.
func (c *Client) DeleteAccount(ctx context.Context, uid string) error {
	if err := c.auth.DeleteUser(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}

// PasswordResetLink generates a reset link that lands on continueURL.
func (c *Client) PasswordResetLink(ctx context.Context, email, continueURL string) (string, error) {
	if continueURL == "" {
		return c.auth.PasswordResetLink(ctx, email)
	}
	return c.auth.PasswordResetLinkWithSettings(ctx, email, &auth.ActionCodeSettings{
		URL:             continueURL,
		HandleCodeInApp: false,
	})
}
