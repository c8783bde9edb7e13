// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"marketplace_backend/internal/config"
)

// FirebaseService wraps the Firebase Admin SDK clients the backend uses:
// Auth for ID token verification and Storage for listing media.
type FirebaseService struct {
	app        *firebase.App
	authClient *auth.Client
	bucketName string
	logger     *zap.Logger
}

// NewFirebaseService initializes the Firebase Admin SDK. It returns nil
// without error when no configured component needs Firebase.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if !cfg.NeedsFirebase() {
		logger.Warn("Firebase disabled: AUTH_DISABLED is set and storage is local")
		return nil, nil
	}
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID, StorageBucket: cfg.StorageBucket}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.", zap.String("bucket", cfg.StorageBucket))
	return &FirebaseService{
		app:        app,
		authClient: authClient,
		bucketName: cfg.StorageBucket,
		logger:     logger,
	}, nil
}

// VerifyIDToken verifies a Firebase ID token and returns the token claims.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return token, nil
}

// Bucket returns the configured default storage bucket.
func (s *FirebaseService) Bucket(ctx context.Context) (*gcs.BucketHandle, error) {
	client, err := s.app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firebase Storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %q: %w", s.bucketName, err)
	}
	return bucket, nil
}

// BucketName is the configured default bucket.
func (s *FirebaseService) BucketName() string {
	return s.bucketName
}
