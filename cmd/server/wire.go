// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"marketplace_backend/internal/app"
	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/filestorage"
	"marketplace_backend/internal/firebase"
	"marketplace_backend/internal/jobs"
	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/listing/esutil"
	"marketplace_backend/internal/middleware"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/platform/elasticsearch"
	"marketplace_backend/internal/shared"
	"marketplace_backend/internal/submission"
	"marketplace_backend/internal/upload"
	"marketplace_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDatabase,
		provideRedis,
		elasticsearch.NewClient,
		firebase.NewFirebaseService,
		filestorage.NewStorage,

		// Identity and profiles
		shared.NewContextIdentity,
		wire.Bind(new(shared.IdentityProvider), new(*shared.ContextIdentity)),
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(middleware.RoleResolver), new(*user.ServiceImplementation)),
		wire.Bind(new(submission.ProfileEnsurer), new(*user.ServiceImplementation)),
		user.NewHandler,

		// Drafts
		provideDraftStore,
		provideAutosaver,
		wire.Bind(new(draft.Cache), new(*draft.Autosaver)),
		draft.NewService,
		wire.Bind(new(draft.Service), new(*draft.ServiceImplementation)),
		wire.Bind(new(submission.DraftCache), new(*draft.ServiceImplementation)),
		wire.Bind(new(submission.DraftSource), new(*draft.ServiceImplementation)),
		draft.NewHandler,

		// Notifications
		notification.NewGORMRepository,
		notification.NewService,
		wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
		wire.Bind(new(submission.Notifier), new(*notification.ServiceImplementation)),
		notification.NewHandler,

		// Listings
		listing.NewGORMRepository,
		esutil.NewIndexer,
		listing.NewService,
		wire.Bind(new(listing.Service), new(*listing.ServiceImplementation)),
		wire.Bind(new(jobs.Sweeper), new(*listing.ServiceImplementation)),
		listing.NewHandler,
		jobs.NewIncompleteListingJob,

		// Submission
		upload.NewPipeline,
		wire.Bind(new(submission.Uploader), new(*upload.Pipeline)),
		submission.NewOrchestrator,
		wire.Bind(new(submission.Submitter), new(*submission.Orchestrator)),
		submission.NewHandler,

		// Application Layer
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
	)
	return nil, nil, nil
}
