package client

import (
	"context"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
)

type Client interface {
	Register(ctx context.Context, username, password string) (*models.Profile, error)
	Login(ctx context.Context, username, password string) (*models.Profile, error)
	Me(ctx context.Context, accessToken string) (*models.Profile, error)
	PushSalt(ctx context.Context, profile models.Profile, salt string) error
	Ping(ctx context.Context) error
}

// Wire DTOs shared with the server.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type saltRequest struct {
	Salt string `json:"salt"`
}

type errorResponse struct {
	Error string `json:"error"`
}
